package main

//go:generate qtc -file=report.qtpl

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/delaneyj/vox/dom"
	"github.com/delaneyj/vox/vox"
	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
)

const (
	verboseKey  = "verbose"
	selectorKey = "selector"
	formatKey   = "format"
)

func main() {
	flags := func(extra ...cli.Flag) []cli.Flag {
		return append([]cli.Flag{
			&cli.BoolFlag{
				Name:    verboseKey,
				Aliases: []string{"v"},
				Usage:   "Log at debug level",
			},
			&cli.StringFlag{
				Name:  selectorKey,
				Usage: "Selector of the root elements",
				Value: vox.DefaultSelector,
			},
		}, extra...)
	}
	cmd := &cli.Command{
		Name:  "vox",
		Usage: "Inspect and check vox directives in HTML files",
		Commands: []*cli.Command{
			{
				Name:      "inspect",
				Usage:     "List the directives of every element in processing order",
				ArgsUsage: "FILE...",
				Flags: flags(&cli.StringFlag{
					Name:  formatKey,
					Usage: "Output format: text or html",
					Value: "text",
				}),
				Action: inspect,
			},
			{
				Name:      "check",
				Usage:     "Compile every directive expression and report syntax errors",
				ArgsUsage: "FILE...",
				Flags:     flags(),
				Action:    check,
			},
		},
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		logrus.Fatal(err)
	}
}

func logger(cmd *cli.Command) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	if cmd.Bool(verboseKey) {
		log.SetLevel(logrus.DebugLevel)
	}
	return log
}

type fileReport struct {
	Name     string
	Size     uint64
	Elements []elementReport
}

type elementReport struct {
	Element    string
	Directives []vox.Directive
}

func (f fileReport) directiveCount() int {
	n := 0
	for _, el := range f.Elements {
		n += len(el.Directives)
	}
	return n
}

// collect lists the directive-carrying elements under the roots of path.
func collect(log logrus.FieldLogger, path, sel string) (fileReport, error) {
	report := fileReport{Name: path}
	data, err := os.ReadFile(path)
	if err != nil {
		return report, err
	}
	report.Size = uint64(len(data))

	doc, err := dom.Parse(bytes.NewReader(data))
	if err != nil {
		return report, fmt.Errorf("parse %s: %w", path, err)
	}
	inst, err := vox.New(doc, vox.WithSelector(sel), vox.WithLogger(log))
	if err != nil {
		return report, fmt.Errorf("%s: %w", path, err)
	}
	log.WithFields(logrus.Fields{"file": path, "roots": len(inst.Roots())}).Debug("parsed")

	for _, root := range inst.Roots() {
		descendants, err := root.QuerySelectorAll("*")
		if err != nil {
			return report, err
		}
		for _, el := range append([]*dom.Node{root}, descendants...) {
			dirs := vox.Directives(el)
			if len(dirs) == 0 {
				continue
			}
			report.Elements = append(report.Elements, elementReport{Element: el.String(), Directives: dirs})
		}
	}
	return report, nil
}

func collectAll(ctx context.Context, cmd *cli.Command) ([]fileReport, error) {
	paths := cmd.Args().Slice()
	if len(paths) == 0 {
		return nil, fmt.Errorf("no files given")
	}
	log := logger(cmd)
	reports := make([]fileReport, 0, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		report, err := collect(log, path, cmd.String(selectorKey))
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, nil
}

func inspect(ctx context.Context, cmd *cli.Command) error {
	reports, err := collectAll(ctx, cmd)
	if err != nil {
		return err
	}
	switch format := cmd.String(formatKey); format {
	case "html":
		WriteReport(os.Stdout, reports)
	case "text":
		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"file", "element", "order", "directive", "key", "flags", "expression"})
		table.SetAutoWrapText(false)
		table.SetAutoMergeCells(true)
		for _, f := range reports {
			for _, el := range f.Elements {
				for _, d := range el.Directives {
					table.Append([]string{
						f.Name,
						el.Element,
						fmt.Sprint(d.Order),
						d.Name,
						d.Key,
						strings.Join(d.Flags, " "),
						d.Expr,
					})
				}
			}
		}
		table.Render()
	default:
		return fmt.Errorf("unknown format %q", format)
	}
	return nil
}

func check(ctx context.Context, cmd *cli.Command) error {
	start := time.Now()
	reports, err := collectAll(ctx, cmd)
	if err != nil {
		return err
	}
	log := logger(cmd)

	var (
		checked, failed int64
		size            uint64
	)
	for _, f := range reports {
		size += f.Size
		for _, el := range f.Elements {
			for _, d := range el.Directives {
				checked++
				if err := d.Check(); err != nil {
					failed++
					log.WithFields(logrus.Fields{
						"file":    f.Name,
						"element": el.Element,
						"attr":    d.Attr,
					}).Error(err)
				}
			}
		}
	}
	log.Infof("checked %s directives in %s files (%s) in %s",
		humanize.Comma(checked),
		humanize.Comma(int64(len(reports))),
		humanize.Bytes(size),
		time.Since(start),
	)
	if failed > 0 {
		return cli.Exit(fmt.Sprintf("%s invalid directives", humanize.Comma(failed)), 1)
	}
	return nil
}
