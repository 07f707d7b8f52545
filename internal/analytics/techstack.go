package analytics

import (
	"context"
	"encoding/json"
	"math"
	"sort"
	"strings"
)

// languageColors matches each major language to its chart color. Unknown
// languages fall back to defaultLanguageColor.
var languageColors = map[string]string{
	"JavaScript": "#f1e05a",
	"TypeScript": "#3178c6",
	"Python":     "#3572A5",
	"Java":       "#b07219",
	"Go":         "#00ADD8",
	"Rust":       "#dea584",
	"C":          "#555555",
	"C++":        "#f34b7d",
	"C#":         "#178600",
	"Ruby":       "#701516",
	"PHP":        "#4F5D95",
	"Swift":      "#F05138",
	"Kotlin":     "#A97BFF",
	"Dart":       "#00B4AB",
	"Shell":      "#89e051",
	"HTML":       "#e34c26",
	"CSS":        "#563d7c",
	"Vue":        "#41b883",
	"Svelte":     "#ff3e00",
}

const defaultLanguageColor = "#8884d8"

// frameworkKeywords maps manifest dependency substrings to framework names.
// Matching is substring-based over the dependency name.
var frameworkKeywords = []struct {
	substr    string
	framework string
}{
	{"next", "Next.js"},
	{"nuxt", "Nuxt.js"},
	{"react", "React"},
	{"vue", "Vue.js"},
	{"angular", "Angular"},
	{"express", "Express.js"},
	{"svelte", "Svelte"},
}

type packageManifest struct {
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
}

// GetTechnologyStack builds the language breakdown and, best-effort, the
// dependency and framework lists from the root package.json. A missing or
// unparseable manifest degrades to empty lists; only the language listing
// itself can fail the operation.
func (s *Service) GetTechnologyStack(ctx context.Context, owner, name string) (TechnologyStack, error) {
	stack := TechnologyStack{
		Languages:    []LanguageStat{},
		Dependencies: []Dependency{},
		Frameworks:   []string{},
	}

	languages, err := s.gw.ListLanguages(ctx, owner, name)
	if err != nil {
		return stack, err
	}

	stack.Languages = languageStats(languages)

	manifest, err := s.gw.GetFileContent(ctx, owner, name, "package.json")
	if err == nil {
		stack.Dependencies = parseDependencies(manifest, s.cfg.DependencyCap)
	}

	stack.Frameworks = detectFrameworks(stack.Dependencies, languages)

	return stack, nil
}

// languageStats converts byte counts into percentage shares, largest first.
func languageStats(languages map[string]int) []LanguageStat {
	total := 0
	for _, bytes := range languages {
		total += bytes
	}
	if total == 0 {
		return []LanguageStat{}
	}

	stats := make([]LanguageStat, 0, len(languages))
	for lang, bytes := range languages {
		color, ok := languageColors[lang]
		if !ok {
			color = defaultLanguageColor
		}
		stats = append(stats, LanguageStat{
			Name:       lang,
			Percentage: int(math.Round(float64(bytes) / float64(total) * 100)),
			Bytes:      bytes,
			Color:      color,
		})
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Bytes > stats[j].Bytes })

	return stats
}

// parseDependencies extracts runtime and dev dependencies from a package.json
// payload, capped per type. Any parse failure yields an empty list.
func parseDependencies(data []byte, limit int) []Dependency {
	var manifest packageManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return []Dependency{}
	}

	deps := collectDependencies(manifest.Dependencies, "dependency", limit)
	deps = append(deps, collectDependencies(manifest.DevDependencies, "devDependency", limit)...)

	return deps
}

func collectDependencies(entries map[string]string, depType string, limit int) []Dependency {
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)
	if len(names) > limit {
		names = names[:limit]
	}

	deps := make([]Dependency, 0, len(names))
	for _, name := range names {
		deps = append(deps, Dependency{Name: name, Version: entries[name], Type: depType})
	}

	return deps
}

// detectFrameworks infers frameworks from dependency names and passes major
// languages straight through.
func detectFrameworks(deps []Dependency, languages map[string]int) []string {
	seen := map[string]struct{}{}
	frameworks := []string{}

	add := func(name string) {
		if _, ok := seen[name]; !ok {
			seen[name] = struct{}{}
			frameworks = append(frameworks, name)
		}
	}

	for _, dep := range deps {
		lower := strings.ToLower(dep.Name)
		for _, kw := range frameworkKeywords {
			if strings.Contains(lower, kw.substr) {
				add(kw.framework)
			}
		}
	}

	for _, lang := range []string{"Python", "Java", "Go", "Rust", "Ruby"} {
		if _, ok := languages[lang]; ok {
			add(lang)
		}
	}

	sort.Strings(frameworks)
	return frameworks
}
