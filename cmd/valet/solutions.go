package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/valet/internal/registry"
)

var solutionsCmd = &cobra.Command{
	Use:   "solutions",
	Short: "Inspect and manage the solution library",
}

var solutionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved solutions",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		reg, err := registry.Open(cfg.Registry)
		if err != nil {
			return err
		}
		defer reg.Close()

		entries := reg.List()
		if len(entries) == 0 {
			fmt.Println("no solutions saved yet")
			return nil
		}
		for _, e := range entries {
			fmt.Printf("%s  %s\n", color.GreenString("%-30s", e.Name), e.Description)
		}
		return nil
	},
}

var solutionsShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show one solution's code",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		reg, err := registry.Open(cfg.Registry)
		if err != nil {
			return err
		}
		defer reg.Close()

		entry, ok := reg.Get(args[0])
		if !ok {
			return fmt.Errorf("no solution named %q", args[0])
		}
		color.Cyan("# %s (v%d)", entry.Name, entry.Version)
		fmt.Println(entry.Description)
		fmt.Println()
		fmt.Println(entry.Code)
		return nil
	},
}

var solutionsRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Delete a solution from the library",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		reg, err := registry.Open(cfg.Registry)
		if err != nil {
			return err
		}
		defer reg.Close()

		if _, ok := reg.Get(args[0]); !ok {
			return fmt.Errorf("no solution named %q", args[0])
		}
		if err := reg.Delete(args[0]); err != nil {
			return err
		}
		fmt.Printf("removed %s\n", args[0])
		return nil
	},
}

var solutionsPendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List candidates awaiting verification",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := registry.NewPendingStore(cfg.Registry.PendingDir)
		if err != nil {
			return err
		}

		pending, err := store.List()
		if err != nil {
			return err
		}
		if len(pending) == 0 {
			fmt.Println("nothing pending")
			return nil
		}
		for _, ps := range pending {
			status := ps.Status
			switch ps.Status {
			case registry.StatusFailed:
				status = color.RedString(ps.Status)
			case registry.StatusVerified:
				status = color.GreenString(ps.Status)
			}
			fmt.Printf("%s  %-10s %s\n", ps.ID, status, ps.Name)
			if ps.Notes != "" {
				fmt.Printf("  notes: %s\n", ps.Notes)
			}
		}
		return nil
	},
}

var submitDescription string

var solutionsSubmitCmd = &cobra.Command{
	Use:   "submit <name> <file.py>",
	Short: "Queue a program for verification",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := registry.NewPendingStore(cfg.Registry.PendingDir)
		if err != nil {
			return err
		}
		code, err := os.ReadFile(args[1])
		if err != nil {
			return err
		}
		ps, err := store.Create(args[0], string(code), submitDescription)
		if err != nil {
			return err
		}
		fmt.Printf("queued %s as %s\n", ps.Name, ps.ID)
		fmt.Printf("verify with: valet jobs verify %s\n", ps.ID)
		return nil
	},
}

var solutionsApproveCmd = &cobra.Command{
	Use:   "approve <pending-id>",
	Short: "Promote a pending candidate into the library without verification",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := registry.NewPendingStore(cfg.Registry.PendingDir)
		if err != nil {
			return err
		}
		reg, err := registry.Open(cfg.Registry)
		if err != nil {
			return err
		}
		defer reg.Close()

		ps, err := store.Get(args[0])
		if err != nil {
			return err
		}
		if err := reg.Save(ps.Name, ps.Code, ps.Description); err != nil {
			return err
		}
		if err := store.Delete(ps.ID); err != nil {
			return err
		}
		fmt.Printf("approved %s as %s\n", ps.ID, ps.Name)
		return nil
	},
}

var solutionsRejectCmd = &cobra.Command{
	Use:   "reject <pending-id>",
	Short: "Discard a pending candidate",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := registry.NewPendingStore(cfg.Registry.PendingDir)
		if err != nil {
			return err
		}
		if _, err := store.Get(args[0]); err != nil {
			return err
		}
		if err := store.Delete(args[0]); err != nil {
			return err
		}
		fmt.Printf("rejected %s\n", args[0])
		return nil
	},
}

func init() {
	solutionsSubmitCmd.Flags().StringVarP(&submitDescription, "description", "d", "", "What the program does (indexed for lookup)")
	solutionsCmd.AddCommand(solutionsListCmd)
	solutionsCmd.AddCommand(solutionsSubmitCmd)
	solutionsCmd.AddCommand(solutionsShowCmd)
	solutionsCmd.AddCommand(solutionsRemoveCmd)
	solutionsCmd.AddCommand(solutionsPendingCmd)
	solutionsCmd.AddCommand(solutionsApproveCmd)
	solutionsCmd.AddCommand(solutionsRejectCmd)
}
