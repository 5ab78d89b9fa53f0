// SPDX-License-Identifier: AGPL-3.0-or-later

package commitanalyzer

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/leodido/go-conventionalcommits"
	"github.com/leodido/go-conventionalcommits/parser"
)

const (
	PresetConventionalCommits = "conventionalcommits"
	PresetAngular             = "angular"
)

// parsedCommit is the part of a parsed message the release rules look at.
type parsedCommit struct {
	Type     string
	Scope    string
	Subject  string
	Breaking bool
	Revert   bool
}

// messageParser turns a raw message into a parsedCommit. ok is false when
// the header does not follow the preset's convention.
type messageParser interface {
	parse(message string) (parsedCommit, bool)
}

var (
	angularHeader      = regexp.MustCompile(`^(\w*)(?:\((.*)\))?: (.*)$`)
	conventionalHeader = regexp.MustCompile(`^(\w*)(?:\((.*)\))?(!?): (.*)$`)
	revertPattern      = regexp.MustCompile(`(?i)^(?:Revert|revert:)\s"?([\s\S]+?)"?\s*This reverts commit (\w*)\.`)
	skipRelease        = regexp.MustCompile(`(?i)\[skip\s+release\]|\[release\s+skip\]`)
)

var presets = map[string]func() messageParser{
	PresetConventionalCommits: newConventionalParser,
	PresetAngular:             func() messageParser { return angularParser{} },
}

// Presets lists the supported preset names.
func Presets() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func parserFor(preset string) (messageParser, error) {
	mk, ok := presets[preset]
	if !ok {
		return nil, fmt.Errorf("unknown preset: %s (must be one of %s)", preset, strings.Join(Presets(), ", "))
	}
	return mk(), nil
}

// conventionalParser follows the Conventional Commits 1.0 grammar, including
// "type(scope)!:" and BREAKING CHANGE footers.
type conventionalParser struct {
	machine conventionalcommits.Machine
}

func newConventionalParser() messageParser {
	return &conventionalParser{
		machine: parser.NewMachine(conventionalcommits.WithTypes(conventionalcommits.TypesFreeForm)),
	}
}

func (p *conventionalParser) parse(message string) (parsedCommit, bool) {
	pc := parsedCommit{Revert: revertPattern.MatchString(message)}
	header, body, _ := strings.Cut(message, "\n")

	msg, err := p.machine.Parse([]byte(message))
	cc, ok := msg.(*conventionalcommits.ConventionalCommit)
	if err != nil || !ok || cc == nil || !cc.Ok() {
		// Headers outside the grammar, such as "feat(a)(b): x", still count
		// when they fit the looser conventional header.
		m := conventionalHeader.FindStringSubmatch(header)
		if m == nil {
			return pc, pc.Revert
		}
		pc.Type, pc.Scope, pc.Subject = m[1], m[2], m[4]
		pc.Breaking = m[3] == "!" || hasBreakingNote(body)
		return pc, true
	}

	// The grammar lower-cases types; rules match the type as written.
	pc.Type = cc.Type
	if len(header) >= len(cc.Type) && strings.EqualFold(header[:len(cc.Type)], cc.Type) {
		pc.Type = header[:len(cc.Type)]
	}
	pc.Subject = cc.Description
	pc.Breaking = cc.IsBreakingChange()
	if cc.Scope != nil {
		pc.Scope = *cc.Scope
	}
	return pc, true
}

// angularParser matches the Angular header convention. It has no "!" marker,
// so breaking changes are only recognised in a BREAKING CHANGE note.
type angularParser struct{}

func (angularParser) parse(message string) (parsedCommit, bool) {
	pc := parsedCommit{Revert: revertPattern.MatchString(message)}

	header, body, _ := strings.Cut(message, "\n")
	m := angularHeader.FindStringSubmatch(header)
	if m == nil {
		return pc, pc.Revert
	}
	pc.Type, pc.Scope, pc.Subject = m[1], m[2], m[3]
	pc.Breaking = hasBreakingNote(body)
	return pc, true
}

func hasBreakingNote(body string) bool {
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "BREAKING CHANGE:") || strings.HasPrefix(line, "BREAKING-CHANGE:") {
			return true
		}
	}
	return false
}
