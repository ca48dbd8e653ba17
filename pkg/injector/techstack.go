package injector

import (
	"strings"

	"github.com/agentpane/agentpane/pkg/scanner"
)

// TechStackEntry is one detected technology, grouped by category.
type TechStackEntry struct {
	Category string
	Label    string
}

// techStackRules is the fixed, ordered keyword table. First match wins per
// category. This is a heuristic classifier, not exhaustive.
var techStackRules = []struct {
	category string
	label    string
	keyword  string
}{
	{"Web framework", "Next.js", "next.js"},
	{"Web framework", "Express", "express"},
	{"Web framework", "Fastify", "fastify"},
	{"Web framework", "Django", "django"},
	{"Web framework", "Flask", "flask"},
	{"Web framework", "Ruby on Rails", "rails"},
	{"Web framework", "Spring", "spring boot"},

	{"UI framework", "React", "react"},
	{"UI framework", "Vue", "vue"},
	{"UI framework", "Svelte", "svelte"},
	{"UI framework", "Angular", "angular"},

	{"Database", "PostgreSQL", "postgres"},
	{"Database", "MySQL", "mysql"},
	{"Database", "MongoDB", "mongodb"},
	{"Database", "SQLite", "sqlite"},
	{"Database", "Redis", "redis"},

	{"ORM", "Prisma", "prisma"},
	{"ORM", "TypeORM", "typeorm"},
	{"ORM", "Sequelize", "sequelize"},
	{"ORM", "SQLAlchemy", "sqlalchemy"},
	{"ORM", "GORM", "gorm"},

	{"Auth", "Auth0", "auth0"},
	{"Auth", "JWT", "jwt"},
	{"Auth", "OAuth", "oauth"},
	{"Auth", "Passport", "passport"},

	{"Infra", "Docker", "docker"},
	{"Infra", "Kubernetes", "kubernetes"},
	{"API", "GraphQL", "graphql"},
	{"API", "gRPC", "grpc"},
}

// DetectTechStack scans the lowercased, concatenated contents of the given
// files for known technology keywords, emitting at most one entry per
// category in rule order.
func DetectTechStack(files []scanner.MarkdownFile) []TechStackEntry {
	if len(files) == 0 {
		return nil
	}

	var sb strings.Builder
	for _, f := range files {
		sb.WriteString(f.Content)
		sb.WriteString("\n")
	}
	haystack := strings.ToLower(sb.String())

	matched := make(map[string]bool)
	var entries []TechStackEntry
	for _, rule := range techStackRules {
		if matched[rule.category] {
			continue
		}
		if strings.Contains(haystack, rule.keyword) {
			matched[rule.category] = true
			entries = append(entries, TechStackEntry{Category: rule.category, Label: rule.label})
		}
	}
	return entries
}
