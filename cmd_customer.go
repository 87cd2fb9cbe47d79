package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var customerID string

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Print the journey stage and confidence score of one customer",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer a.log.Sync()
		res, err := a.engine.Classify(customerID)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s ; %s ; %.6f\n", strings.TrimSpace(customerID), res.Stage, res.Score)
		return nil
	},
}

var progressionCmd = &cobra.Command{
	Use:   "progression",
	Short: "Print the confidence score after each purchase of one customer",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer a.log.Sync()
		h, res, err := a.engine.Journey(customerID)
		if err != nil {
			return err
		}
		for i, score := range res.Progression {
			p := h.Purchases[i]
			fmt.Fprintf(cmd.OutOrStdout(), "%d ; %s ; %s ; returned=%t ; %.6f ; %s\n",
				i+1, p.CreatedAt.Format("2006-01-02"), p.ProductID, p.Returned, score, res.Stages[i])
		}
		return nil
	},
}

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Print the likely next styles for one customer",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer a.log.Sync()
		next, err := a.engine.PredictNext(customerID)
		if err != nil {
			return err
		}
		if len(next) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no significant transition from the last purchased style")
			return nil
		}
		parts := make([]string, 0, len(next))
		for _, t := range next {
			parts = append(parts, fmt.Sprintf("%s=%.3f", t.To, t.Probability))
		}
		fmt.Fprintln(cmd.OutOrStdout(), strings.Join(parts, " ; "))
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{classifyCmd, progressionCmd, predictCmd} {
		c.Flags().StringVar(&customerID, "customer", "", "Customer identifier")
		_ = c.MarkFlagRequired("customer")
		rootCmd.AddCommand(c)
	}
}
