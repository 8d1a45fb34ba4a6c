package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/SAP-F-2025/survey-service/internal/services"
	"github.com/spf13/cobra"
)

var automapOpts struct {
	surveyType string
	all        bool
}

var automapCmd = &cobra.Command{
	Use:   "automap [header...]",
	Short: "Suggest question mappings for spreadsheet column headers",
	Example: `  survey-service automap --type course-feedback "Full Name" "E-mail" "How confident are you with Go?"
  survey-service automap --type onboarding --all Dept Started`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAutomap,
}

func init() {
	automapCmd.Flags().StringVarP(&automapOpts.surveyType, "type", "t", "", "Survey type (required)")
	automapCmd.Flags().BoolVar(&automapOpts.all, "all", false, "Show the best candidate for every header, mapped or not")
	_ = automapCmd.MarkFlagRequired("type")
}

func runAutomap(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	svc := services.NewMappingService(a.store, a.logger)
	diagnoses, err := svc.Diagnose(cmd.Context(), automapOpts.surveyType, args)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "HEADER\tMAPS TO\tCONFIDENCE\tREASON")
	for _, d := range diagnoses {
		if !d.Mapped && !automapOpts.all {
			fmt.Fprintf(w, "%s\t-\t\tunmapped\n", d.Header)
			continue
		}
		target := d.Candidate
		if !d.Mapped {
			target = "(" + d.Candidate + ")"
		}
		fmt.Fprintf(w, "%s\t%s\t%.2f\t%s\n", d.Header, target, d.Confidence, d.Reason)
	}
	return w.Flush()
}
