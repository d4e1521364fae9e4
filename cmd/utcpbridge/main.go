package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/utcpbridge/bridge"
	"github.com/effective-security/utcpbridge/callbacks"
	"github.com/effective-security/utcpbridge/catalog"
	"github.com/effective-security/utcpbridge/factory"
	"github.com/effective-security/utcpbridge/pkg/llmutils"
	"github.com/effective-security/xlog"
	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"
)

// Output formats
const (
	OutputText = "text"
	OutputJSON = "json"
	OutputYAML = "yaml"

	// OutputPrompt lists the tool names and descriptions for the agent prompt
	OutputPrompt = "prompt"
)

var logLevels = map[string]xlog.LogLevel{
	"CRITICAL": xlog.CRITICAL,
	"ERROR":    xlog.ERROR,
	"WARNING":  xlog.WARNING,
	"NOTICE":   xlog.NOTICE,
	"INFO":     xlog.INFO,
	"DEBUG":    xlog.DEBUG,
}

type cli struct {
	configFile string
	logLevel   string
	output     string

	argsFile string
	verbose  bool

	stdout io.Writer
	stderr io.Writer
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	c := &cli{
		stdout: stdout,
		stderr: stderr,
	}

	rootCmd := &cobra.Command{
		Use:           "utcpbridge",
		Short:         "utcpbridge - exposes UTCP tools as agent tools",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setupLogging()
		},
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&c.configFile, "config", "c", "utcpbridge.yaml", "Config file")
	flags.StringVar(&c.logLevel, "log-level", "WARNING", "Log level: CRITICAL|ERROR|WARNING|NOTICE|INFO|DEBUG")
	flags.StringVarP(&c.output, "output", "o", OutputText, "Output format: text|json|yaml|prompt")

	toolsCmd := &cobra.Command{
		Use:   "tools",
		Short: "List the bridged tools",
		Args:  cobra.NoArgs,
		RunE:  c.runTools,
	}

	callCmd := &cobra.Command{
		Use:   "call <name> [args-json]",
		Short: "Call the bridged tool by its sanitized or original name",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  c.runCall,
	}
	callCmd.Flags().StringVar(&c.argsFile, "args-file", "", "JSON or YAML file with the arguments")
	callCmd.Flags().BoolVarP(&c.verbose, "verbose", "v", false, "Print the tool events")

	manualCmd := &cobra.Command{
		Use:   "manual",
		Short: "Print the merged catalog of the configured manuals",
		Args:  cobra.NoArgs,
		RunE:  c.runManual,
	}

	rootCmd.AddCommand(toolsCmd, callCmd, manualCmd)
	return rootCmd
}

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
		os.Exit(1)
	}
}

func (c *cli) setupLogging() error {
	level, ok := logLevels[strings.ToUpper(c.logLevel)]
	if !ok {
		return errors.Errorf("unsupported log level: %s", c.logLevel)
	}
	xlog.SetFormatter(xlog.NewStringFormatter(c.stderr))
	xlog.SetGlobalLogLevel(level)
	return nil
}

func (c *cli) toolset(ctx context.Context, opts ...bridge.Option) (*bridge.Toolset, error) {
	f, err := factory.Load(c.configFile)
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to load config %s", c.configFile)
	}
	return f.Toolset(ctx, opts...)
}

type toolInfo struct {
	Name         string             `json:"name" yaml:"name"`
	OriginalName string             `json:"original_name" yaml:"original_name"`
	Description  string             `json:"description" yaml:"description"`
	Parameters   *bridge.Parameters `json:"parameters" yaml:"parameters"`
}

func (c *cli) runTools(cmd *cobra.Command, _ []string) error {
	ts, err := c.toolset(cmd.Context())
	if err != nil {
		return err
	}

	if c.output == OutputPrompt {
		fmt.Fprint(c.stdout, ts.Descriptions())
		return nil
	}

	list := ts.Tools()
	infos := make([]toolInfo, len(list))
	for i, t := range list {
		infos[i] = toolInfo{
			Name:         t.Name(),
			OriginalName: t.OriginalName(),
			Description:  t.Description(),
			Parameters:   t.Schema(),
		}
	}

	if c.output != OutputText {
		return c.print(infos)
	}

	for _, info := range infos {
		fmt.Fprintf(c.stdout, "%s (%s)\n", info.Name, info.OriginalName)
		fmt.Fprintf(c.stdout, "  %s\n", info.Description)
		fmt.Fprintf(c.stdout, "  parameters: %s\n", llmutils.ToJSON(info.Parameters))
	}
	return nil
}

func (c *cli) runCall(cmd *cobra.Command, args []string) error {
	input, err := c.callArguments(args)
	if err != nil {
		return err
	}

	var opts []bridge.Option
	var pad *callbacks.Scratchpad
	if c.verbose {
		pad = callbacks.NewScratchpad(callbacks.ModeVerbose)
		opts = append(opts, bridge.WithCallback(callbacks.NewFanout(
			callbacks.NewPrinter(c.stderr, callbacks.ModeVerbose),
			pad,
		)))
	}

	ts, err := c.toolset(cmd.Context(), opts...)
	if err != nil {
		return err
	}

	// tool failures are reported as the result text
	fmt.Fprintln(c.stdout, ts.Call(cmd.Context(), args[0], input))

	if pad != nil {
		stats, _ := pad.Stats()
		fmt.Fprintf(c.stderr, "Duration: %s, Tool calls: %d, Succeeded: %d, Failed: %d\n",
			stats.Duration, stats.ToolsCalls, stats.ToolsCallsSucceeded, stats.ToolsCallsFailed)
	}
	return nil
}

// callArguments returns the JSON arguments from the command line or the file
func (c *cli) callArguments(args []string) (string, error) {
	if c.argsFile == "" {
		if len(args) > 1 {
			return args[1], nil
		}
		return "", nil
	}
	if len(args) > 1 {
		return "", errors.New("args-json and --args-file are mutually exclusive")
	}

	data, err := os.ReadFile(c.argsFile)
	if err != nil {
		return "", errors.Wrapf(err, "failed to read arguments")
	}

	switch strings.ToLower(filepath.Ext(c.argsFile)) {
	case ".yaml", ".yml":
		data, err = yaml.YAMLToJSON(data)
		if err != nil {
			return "", errors.Wrapf(err, "failed to convert arguments")
		}
	}
	return string(data), nil
}

func (c *cli) runManual(cmd *cobra.Command, _ []string) error {
	f, err := factory.Load(c.configFile)
	if err != nil {
		return errors.WithMessagef(err, "failed to load config %s", c.configFile)
	}
	repo, err := f.Repository()
	if err != nil {
		return err
	}
	list, err := repo.ListTools(cmd.Context())
	if err != nil {
		return err
	}

	m := &catalog.Manual{
		UTCPVersion: "1.0.1",
		Tools:       list,
	}
	if c.output == OutputText {
		c.output = OutputJSON
	}
	return c.print(m)
}

func (c *cli) print(v any) error {
	switch c.output {
	case OutputJSON:
		fmt.Fprintln(c.stdout, llmutils.ToJSONIndent(v))
	case OutputYAML:
		fmt.Fprint(c.stdout, llmutils.ToYAML(v))
	default:
		return errors.Errorf("unsupported output format: %s", c.output)
	}
	return nil
}
