package main

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/pandeptwidyaop/panelctl/internal/console"
)

var flagReveal bool

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "Read and change panel environment settings",
}

var envGetCmd = &cobra.Command{
	Use:   "get KEY",
	Short: "Print one setting",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(flagConfig, false)
		if err != nil {
			return err
		}
		defer a.close()
		env, err := requireEnv(a)
		if err != nil {
			return err
		}

		v, ok, err := env.Get(args[0])
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%s is not set", args[0])
		}
		fmt.Println(v)
		return nil
	},
}

var envSetCmd = &cobra.Command{
	Use:   "set KEY VALUE",
	Short: "Change one setting and clear the config cache",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(flagConfig, false)
		if err != nil {
			return err
		}
		defer a.close()
		env, err := requireEnv(a)
		if err != nil {
			return err
		}

		key, value := args[0], args[1]
		if err := a.track("Set "+key, env.Path(), func() error { return env.Set(key, value) }); err != nil {
			return err
		}
		if err := a.deps.Panel.ClearCaches(cmd.Context()); err != nil {
			fmt.Fprintf(os.Stderr, "warning: setting saved, but clearing the config cache failed: %v\n", err)
		}
		return nil
	},
}

var envListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every setting with credentials masked",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(flagConfig, false)
		if err != nil {
			return err
		}
		defer a.close()
		env, err := requireEnv(a)
		if err != nil {
			return err
		}

		entries, err := env.Entries()
		if err != nil {
			return err
		}
		tw := tablewriter.NewWriter(os.Stdout)
		tw.SetHeader([]string{"KEY", "VALUE"})
		tw.SetAutoWrapText(false)
		for _, e := range entries {
			v := e.Value
			if !flagReveal {
				v = console.Mask(e.Key, v)
			}
			tw.Append([]string{e.Key, v})
		}
		tw.Render()
		return nil
	},
}

func init() {
	envListCmd.Flags().BoolVar(&flagReveal, "reveal", false, "show credential values")
	envCmd.AddCommand(envGetCmd)
	envCmd.AddCommand(envSetCmd)
	envCmd.AddCommand(envListCmd)
}
