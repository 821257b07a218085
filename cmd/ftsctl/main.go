// Command ftsctl is the command-line surface over the fts engine: add,
// delete, search, flush and merge, per spec.md §6 ("CLI surface
// (collaborator, summarized)").
package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/wizenheimer/fts"
)

const exitUsage = 2
const exitFailure = 1

// usageError marks an argument-count or flag-parse failure, so run can
// tell it apart from an operational failure returned by the engine.
type usageError struct{ err error }

func (u usageError) Error() string { return u.err.Error() }
func (u usageError) Unwrap() error { return u.err }

func exactArgs(n int) cobra.PositionalArgs {
	validate := cobra.ExactArgs(n)
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return usageError{err}
		}
		return nil
	}
}

func main() {
	os.Exit(run())
}

func run() int {
	var root string
	var topK int

	rootCmd := &cobra.Command{
		Use:           "ftsctl",
		Short:         "in-process full-text search engine control",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&root, "root", "./data", "engine data directory")
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageError{err}
	})

	addCmd := &cobra.Command{
		Use:   "add <doc_id> <text>",
		Short: "index a document",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEngine(root)
			if err != nil {
				return err
			}
			defer e.Close()

			doc, err := parseDocID(args[0])
			if err != nil {
				return err
			}
			return e.Add(doc, args[1])
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <doc_id>",
		Short: "remove a document",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEngine(root)
			if err != nil {
				return err
			}
			defer e.Close()

			doc, err := parseDocID(args[0])
			if err != nil {
				return err
			}
			return e.Delete(doc)
		},
	}

	searchCmd := &cobra.Command{
		Use:   "search <query>",
		Short: "search the index",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEngine(root)
			if err != nil {
				return err
			}
			defer e.Close()

			q, err := fts.ParseQuery(args[0])
			if err != nil {
				return usageError{err}
			}
			results, err := e.Search(q, topK)
			if err != nil {
				return err
			}
			for _, r := range results {
				fmt.Printf("%s\t%.6f\n", r.Doc, r.Score)
			}
			return nil
		},
	}
	searchCmd.Flags().IntVar(&topK, "top", 10, "maximum results")

	flushCmd := &cobra.Command{
		Use:   "flush",
		Short: "flush all pending buffers",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEngine(root)
			if err != nil {
				return err
			}
			defer e.Close()
			return e.Flush()
		},
	}

	mergeCmd := &cobra.Command{
		Use:   "merge",
		Short: "compact eligible segments",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEngine(root)
			if err != nil {
				return err
			}
			defer e.Close()
			return e.Merge()
		},
	}

	rootCmd.AddCommand(addCmd, deleteCmd, searchCmd, flushCmd, mergeCmd)

	if err := rootCmd.Execute(); err != nil {
		slog.Error("ftsctl failed", slog.Any("err", err))
		if isUsageError(err) {
			return exitUsage
		}
		return exitFailure
	}
	return 0
}

func openEngine(root string) (*fts.Engine, error) {
	return fts.New(root, fts.DefaultConfig())
}

func parseDocID(s string) (fts.DocID, error) {
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != 16 {
		return fts.DocID{}, usageError{fmt.Errorf("invalid doc_id %q: must be 32 hex characters", s)}
	}
	var d fts.DocID
	copy(d[:], b)
	return d, nil
}

func isUsageError(err error) bool {
	var u usageError
	return errors.As(err, &u)
}
