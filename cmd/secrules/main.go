package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sectools/secrules/internal/ctl"
	"github.com/sectools/secrules/internal/rulestore"
	"github.com/sectools/secrules/internal/server"
	"github.com/sectools/secrules/internal/version"
)

var (
	red   = color.New(color.FgHiRed, color.Bold).SprintFunc()
	green = color.New(color.FgHiGreen).SprintFunc()
	cyan  = color.New(color.FgHiCyan).SprintFunc()
)

var socketPath string

const opTimeout = 10 * time.Second

func client() *ctl.Client {
	return ctl.NewClient(socketPath)
}

func parseUID(arg string) (uint32, error) {
	uid, err := strconv.ParseUint(arg, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid uid %q", arg)
	}
	return uint32(uid), nil
}

var printCmd = &cobra.Command{
	Use:   "print [uid]",
	Short: "Print stored rules, for one uid or the whole store",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		uid := rulestore.SentinelUID
		if len(args) == 1 {
			parsed, err := parseUID(args[0])
			if err != nil {
				return err
			}
			uid = parsed
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), opTimeout)
		defer cancel()

		data, truncated, err := client().Read(ctx, uid)
		if err != nil {
			return err
		}
		os.Stdout.Write(data)
		if truncated {
			fmt.Fprintln(os.Stderr, cyan("note:"), "rule list truncated by the server")
		}
		return nil
	},
}

var addCmd = &cobra.Command{
	Use:   "add <uid> <rule>",
	Short: "Add a rule for a uid",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		uid, err := parseUID(args[0])
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), opTimeout)
		defer cancel()

		if err := client().Add(ctx, uid, args[1]); err != nil {
			return err
		}
		fmt.Println(green("added"), "rule for uid", uid)
		return nil
	},
}

var rmvCmd = &cobra.Command{
	Use:   "rmv <uid> <rule>",
	Short: "Remove a rule for a uid",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		uid, err := parseUID(args[0])
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), opTimeout)
		defer cancel()

		found, err := client().Remove(ctx, uid, args[1])
		if err != nil {
			return err
		}
		if found {
			fmt.Println(green("removed"), "rule for uid", uid)
		} else {
			fmt.Println(cyan("no match"), "for uid", uid)
		}
		return nil
	},
}

func main() {
	rootCmd := &cobra.Command{
		Use:           "secrules",
		Short:         "SecRules CLI",
		Version:       version.Detailed(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&socketPath, "socket", "s",
		server.DefaultSocket, "Path of the control socket")
	rootCmd.AddCommand(printCmd, addCmd, rmvCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, red("error:"), err)
		os.Exit(1)
	}
}
