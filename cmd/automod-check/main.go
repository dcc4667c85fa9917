package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"sentinel-support/internal/automod"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func main() {
	app := cli.App{
		Name:  "automod-check",
		Usage: "check text against an automod rules file",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "rules",
				Aliases: []string{"r"},
				Usage:   "path to the rules file (.json or .yaml)",
				Value:   "automod-rules.yaml",
				EnvVars: []string{"AUTOMOD_RULES_PATH"},
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "print one JSON result per input line",
			},
			&cli.IntFlag{
				Name:  "page-size",
				Usage: "matches shown per page in text output",
				Value: 5,
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "log rule loading details",
			},
		},
		ArgsUsage: "[text...]",
		Action:    runCheck,
	}
	app.RunAndExitOnError()
}

func runCheck(cctx *cli.Context) error {
	logger := zap.NewNop()
	if cctx.Bool("verbose") {
		l, err := zap.NewDevelopment()
		if err != nil {
			return err
		}
		logger = l
	}

	rules, err := loadRules(cctx.String("rules"), logger)
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	checker := automod.NewChecker(rules, automod.NewMatcher(logger, 0), logger)

	inputs := cctx.Args().Slice()
	if len(inputs) == 0 {
		scanner := bufio.NewScanner(os.Stdin)
		scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
		for scanner.Scan() {
			inputs = append(inputs, scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			return err
		}
	}

	blocked := 0
	enc := json.NewEncoder(os.Stdout)
	for _, input := range inputs {
		result := checker.CheckContent(input)
		if result.Blocked {
			blocked++
		}
		if cctx.Bool("json") {
			if err := enc.Encode(result); err != nil {
				return err
			}
			continue
		}
		printResult(input, result, cctx.Int("page-size"))
	}
	if blocked > 0 {
		return cli.Exit("", 1)
	}
	return nil
}

func loadRules(path string, logger *zap.Logger) (*automod.RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return automod.ParseRuleSet(data, logger)
}

func printResult(input string, result automod.CheckResult, pageSize int) {
	switch {
	case result.Allowed:
		fmt.Printf("ALLOW  %q (rule %s, pattern %q)\n", input, result.MatchedRuleID, result.AllowedPattern)
	case result.Blocked:
		fmt.Printf("BLOCK  %q (%d matches)\n", input, result.MatchCount)
	default:
		fmt.Printf("CLEAN  %q\n", input)
		return
	}
	for page := 0; page < result.PageCount(pageSize); page++ {
		for _, m := range result.Page(page, pageSize) {
			fmt.Printf("  %-5s %s (%s): %s\n", m.Kind, m.Rule, m.RuleID, m.Pattern)
		}
		if page < result.PageCount(pageSize)-1 {
			fmt.Println("  " + strings.Repeat("-", 20))
		}
	}
}
