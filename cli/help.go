// Copyright (c) 2024, The OTNS Authors.
// All rights reserved.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions are met:
// 1. Redistributions of source code must retain the above copyright
//    notice, this list of conditions and the following disclaimer.
// 2. Redistributions in binary form must reproduce the above copyright
//    notice, this list of conditions and the following disclaimer in the
//    documentation and/or other materials provided with the distribution.
// 3. Neither the name of the copyright holder nor the
//    names of its contributors may be used to endorse or promote products
//    derived from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS "AS IS"
// AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT LIMITED TO, THE
// IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE
// ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR CONTRIBUTORS BE
// LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL, SPECIAL, EXEMPLARY, OR
// CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT LIMITED TO, PROCUREMENT OF
// SUBSTITUTE GOODS OR SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY, WHETHER IN
// CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING NEGLIGENCE OR OTHERWISE)
// ARISING IN ANY WAY OUT OF THE USE OF THIS SOFTWARE, EVEN IF ADVISED OF THE
// POSSIBILITY OF SUCH DAMAGE.

package cli

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/mitchellh/go-wordwrap"
	"golang.org/x/term"

	"github.com/lorasim/lora-ns/logger"
)

const (
	defaultTermWidth = 80
	cmdColumnWidth   = 12
)

// Help renders the command reference embedded from README.md.
type Help struct {
	termWidth     uint
	topics        []string
	commands      map[string]string
	commandsShort map[string]string
}

var (
	cmdHeaderPattern = regexp.MustCompile("^### .+")
	mdLinkPattern    = regexp.MustCompile(`\[([^\]]+)\]\([^)]*\)`)
)

//go:embed README.md
var cliHelpFile string

func newHelp() Help {
	h := Help{
		termWidth:     defaultTermWidth,
		commands:      make(map[string]string),
		commandsShort: make(map[string]string),
	}
	h.parseHelpFile(cliHelpFile)
	h.update()
	return h
}

// update reads the width of the user's terminal, if stdout is one.
func (help *Help) update() {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return
	}
	width, _, err := term.GetSize(fd)
	if err != nil {
		logger.Debugf("could not get terminal size: %v", err)
		return
	}
	if width > cmdColumnWidth*2 {
		help.termWidth = uint(width)
	}
}

func (help *Help) outputGeneralHelp() string {
	var sb strings.Builder
	for _, c := range help.topics {
		_, _ = fmt.Fprintf(&sb, "%-*s %s\n", cmdColumnWidth, c, help.commandsShort[c])
	}
	sb.WriteString(wordwrap.WrapString("\nFor detailed help per command, use: 'help <command>'\n", help.termWidth))
	return sb.String()
}

func (help *Help) outputCommandHelp(command string) string {
	help.update()
	explanation, ok := help.commands[command]
	if !ok {
		return fmt.Sprintf("%s\n  (Non-existent command, see 'help'.)\n", command)
	}

	var sb strings.Builder
	w := help.termWidth - 2
	for _, line := range strings.Split(wordwrap.WrapString(explanation, w), "\n") {
		if line == command {
			sb.WriteString(line + "\n")
		} else {
			sb.WriteString("  " + line + "\n")
		}
	}
	return strings.TrimRight(sb.String(), " \n") + "\n"
}

// parseHelpFile splits the markdown into one entry per '### <command>' section. Code blocks become indented
// examples; the first sentence of a section is its short description.
func (help *Help) parseHelpFile(md string) {
	activeCmd := ""
	indent := ""
	for _, line := range strings.Split(md, "\n") {
		line = strings.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		switch {
		case line == "```bash":
			line, indent = "\nExample:", ""
		case line == "```shell":
			line, indent = "\nDefinition:", ""
		case line == "```":
			indent = ""
			continue
		case cmdHeaderPattern.MatchString(line):
			activeCmd = strings.TrimSpace(strings.TrimPrefix(line, "###"))
			help.topics = append(help.topics, activeCmd)
			help.commands[activeCmd] = activeCmd + "\n"
			continue
		}
		if len(activeCmd) == 0 {
			continue
		}

		help.commands[activeCmd] += indent + markdownUnquote(line) + "\n"
		if strings.HasPrefix(line, "\n") {
			indent = "  "
		} else if len(help.commandsShort[activeCmd]) == 0 {
			help.commandsShort[activeCmd] = firstSentence(markdownUnquote(line))
		}
	}
	sort.Strings(help.topics)
}

func firstSentence(s string) string {
	if idx := strings.Index(s, ". "); idx > 0 {
		return s[:idx+1]
	}
	return s
}

func markdownUnquote(md string) string {
	md = mdLinkPattern.ReplaceAllString(md, "$1")
	md = strings.ReplaceAll(md, "\\", "")
	return strings.ReplaceAll(md, "`", "")
}
