// Command docgen builds the cld reference pages. It scrapes the @-annotated
// handlers in internal/cli into docs/commands.adoc, then renders every
// docs/*.adoc page to a standalone HTML file under docs/html/.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"courseledger.dev/cld/internal/docs"
)

type command struct {
	Title       string
	Command     string
	Description string
	Response    string
}

func main() {
	cliDir := flag.String("cli-dir", "internal/cli", "directory scanned for annotated handlers")
	docsDir := flag.String("docs-dir", "docs", "directory holding the .adoc pages")
	outDir := flag.String("out", "docs/html", "directory the rendered HTML is written to")
	flag.Parse()

	commands, err := scanCommands(*cliDir)
	if err != nil {
		fatal(err)
	}
	if len(commands) == 0 {
		fatal(fmt.Errorf("no annotated handlers found under %s", *cliDir))
	}

	refPage := filepath.Join(*docsDir, "commands.adoc")
	if err := os.WriteFile(refPage, []byte(commandsPage(commands)), 0o644); err != nil {
		fatal(err)
	}
	fmt.Printf("wrote %s (%d commands)\n", refPage, len(commands))

	if err := renderAll(*docsDir, *outDir); err != nil {
		fatal(err)
	}
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "docgen:", err)
	os.Exit(1)
}

// scanCommands collects annotation blocks from the handler sources. A block
// is complete at its @Response line.
func scanCommands(dir string) ([]command, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}

	reTitle := regexp.MustCompile(`// @Title: (.*)`)
	reCommand := regexp.MustCompile(`// @Command: (.*)`)
	reDesc := regexp.MustCompile(`// @Description: (.*)`)
	reResp := regexp.MustCompile(`// @Response: (.*)`)

	var commands []command
	for _, file := range files {
		if !strings.HasSuffix(file.Name(), ".go") || strings.HasSuffix(file.Name(), "_test.go") {
			continue
		}

		f, err := os.Open(filepath.Join(dir, file.Name()))
		if err != nil {
			return nil, err
		}

		scanner := bufio.NewScanner(f)
		var current command
		for scanner.Scan() {
			line := scanner.Text()
			if match := reTitle.FindStringSubmatch(line); len(match) > 1 {
				current.Title = strings.TrimSpace(match[1])
			}
			if match := reCommand.FindStringSubmatch(line); len(match) > 1 {
				current.Command = strings.TrimSpace(match[1])
			}
			if match := reDesc.FindStringSubmatch(line); len(match) > 1 {
				current.Description = strings.TrimSpace(match[1])
			}
			if match := reResp.FindStringSubmatch(line); len(match) > 1 {
				current.Response = strings.TrimSpace(match[1])
				if current.Title != "" && current.Command != "" {
					commands = append(commands, current)
				}
				current = command{}
			}
		}
		err = scanner.Err()
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", file.Name(), err)
		}
	}
	return commands, nil
}

// commandsPage builds the command reference as an AsciiDoc document.
func commandsPage(commands []command) string {
	var b strings.Builder
	b.WriteString("= Command Reference\n\n")
	b.WriteString("Generated by cmd/docgen from the handler annotations in internal/cli.\n")
	b.WriteString("Do not edit by hand.\n")
	for _, c := range commands {
		fmt.Fprintf(&b, "\n== %s\n\n", c.Title)
		fmt.Fprintf(&b, " %s\n\n", c.Command)
		if c.Description != "" {
			fmt.Fprintf(&b, "%s.\n", strings.TrimSuffix(c.Description, "."))
		}
		if c.Response != "" {
			fmt.Fprintf(&b, "\nResponse: %s\n", c.Response)
		}
	}
	return b.String()
}

const pageShell = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>%s - cld</title>
<style>
body { font-family: sans-serif; max-width: 52rem; margin: 2rem auto; padding: 0 1rem; color: #24292f; }
h1, h2 { border-bottom: 1px solid #d0d7de; padding-bottom: .3rem; }
table { border-collapse: collapse; }
td, th { border: 1px solid #d0d7de; padding: .4rem .6rem; text-align: left; vertical-align: top; }
pre, .literalblock { background: #f6f8fa; padding: .6rem; overflow-x: auto; }
</style>
</head>
<body>
<h1>%s</h1>
%s
</body>
</html>
`

// renderAll converts every .adoc page to a standalone HTML file.
func renderAll(docsDir, outDir string) error {
	svc := docs.NewService(docsDir)
	names, err := svc.List()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", outDir, err)
	}

	for _, name := range names {
		page, err := svc.Render(name)
		if err != nil {
			return err
		}
		target := filepath.Join(outDir, strings.TrimSuffix(name, ".adoc")+".html")
		body := fmt.Sprintf(pageShell, page.Title, page.Title, page.HTML)
		if err := os.WriteFile(target, []byte(body), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", target, err)
		}
		fmt.Printf("rendered %s\n", target)
	}
	return nil
}
