// Package cmd implements the llama-sampling command line interface.
package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sort"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kherud/llama-sampling/envconfig"
	"github.com/kherud/llama-sampling/logutil"
	"github.com/kherud/llama-sampling/sample"
	"github.com/kherud/llama-sampling/server"
	"github.com/kherud/llama-sampling/version"
)

func NewCLI() *cobra.Command {
	cobra.EnableCommandSorting = false

	rootCmd := &cobra.Command{
		Use:     "llama-sampling",
		Short:   "Adaptive sampling sidecar for llama.cpp backends",
		Version: version.Version,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Disable usage printing on errors
			cmd.SilenceUsage = true

			level := slog.LevelInfo
			if envconfig.Debug {
				level = slog.LevelDebug
			}
			slog.SetDefault(logutil.NewLogger(os.Stderr, level))
		},
	}

	rootCmd.AddCommand(
		NewServeCmd(),
		NewPresetsCmd(),
		NewDetectCmd(),
		NewReplayCmd(),
	)

	return rootCmd
}

func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "serve",
		Aliases: []string{"start"},
		Short:   "Start the sampling server",
		Args:    cobra.ExactArgs(0),
		RunE:    serveHandler,
	}
}

func serveHandler(cmd *cobra.Command, args []string) error {
	slog.Info("server config", "env", envconfig.Values())

	ln, err := net.Listen("tcp", envconfig.Host)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(cmd.Context())
	g.Go(func() error {
		if err := server.Serve(ln); err != nil && !errors.Is(err, net.ErrClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		return ln.Close()
	})
	return g.Wait()
}

func NewPresetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List the built-in sampling profiles",
		Args:  cobra.ExactArgs(0),
		RunE:  presetsHandler,
	}
}

func presetsHandler(cmd *cobra.Command, args []string) error {
	presets := sample.DefaultPresets()

	contexts := make([]sample.Context, 0, len(presets))
	for ctx := range presets {
		contexts = append(contexts, ctx)
	}
	sort.Slice(contexts, func(i, j int) bool { return contexts[i] < contexts[j] })

	var data [][]string
	for _, ctx := range contexts {
		specs := presets[ctx]
		pipeline := make([]string, 0, len(specs))
		for _, spec := range specs {
			pipeline = append(pipeline, spec.String())
		}
		data = append(data, []string{string(ctx), fmt.Sprint(len(specs)), strings.Join(pipeline, " -> ")})
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"CONTEXT", "STAGES", "PIPELINE"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.AppendBulk(data)
	table.Render()

	return nil
}

func NewDetectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "detect TEXT",
		Short: "Classify text into a sampling context",
		Args:  cobra.MinimumNArgs(1),
		RunE:  detectHandler,
	}
}

func detectHandler(cmd *cobra.Command, args []string) error {
	text := strings.Join(args, " ")

	ctx, ok := sample.DefaultDetector().Detect(text)
	if !ok {
		fmt.Println("no match")
		return nil
	}
	fmt.Println(ctx)
	return nil
}

func NewReplayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay [TOKEN...]",
		Short: "Feed tokens through a local JSON session and print each transition",
		Long: `Feed tokens through a local JSON session and print each transition.
Tokens come from the arguments, or one per line on stdin when no
arguments are given.`,
		RunE: replayHandler,
	}
	cmd.Flags().String("mode", "", "constraint mode: strict, flexible or partial")
	cmd.Flags().String("schema", "", "path to a JSON schema for key suggestions")
	return cmd
}

func replayHandler(cmd *cobra.Command, args []string) error {
	modeText, _ := cmd.Flags().GetString("mode")
	if modeText == "" {
		modeText = envconfig.DefaultMode
	}
	mode, err := sample.ParseMode(modeText)
	if err != nil {
		return err
	}

	var schema []byte
	if path, _ := cmd.Flags().GetString("schema"); path != "" {
		schema, err = os.ReadFile(path)
		if err != nil {
			return err
		}
	}

	sess, err := sample.NewSession(sample.NewInprocessBackend(), mode, schema)
	if err != nil {
		return err
	}
	defer sess.Close()

	for _, ctx := range sess.Registry().Contexts() {
		chain, _ := sess.Registry().Chain(ctx)
		pipeline := make([]string, 0, chain.Len())
		for _, spec := range chain.Specs() {
			pipeline = append(pipeline, spec.String())
		}
		fmt.Printf("profile %s: %s\n", ctx, strings.Join(pipeline, " -> "))
	}

	replay := func(token string) {
		valid := sess.ProcessToken(token)
		_, ctx := sess.ActiveChain()
		fmt.Printf("%-12q state=%-12s context=%-15s depth=%d valid=%t\n",
			token, sess.State(), ctx, sess.Depth(), valid)
	}

	if len(args) > 0 {
		for _, token := range args {
			replay(token)
		}
		return nil
	}

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for scanner.Scan() {
		replay(scanner.Text())
	}
	return scanner.Err()
}
