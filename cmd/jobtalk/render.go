package main

import (
	"net/url"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"jobtalk/internal/document"
)

func renderCmd() *cobra.Command {
	var (
		values      = map[string]*string{}
		downPayment float64
		out         string
		format      string
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a proposal from flags",
		Example: `  jobtalk render --name "Jane Doe" --scope "Build a fence" --budget "Labor \$1,000
Materials \$500"`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			params := url.Values{}
			for key, v := range values {
				if *v != "" {
					params.Set(key, *v)
				}
			}
			if cmd.Flags().Changed("down-payment") {
				params.Set("downPayment", strconv.FormatFloat(downPayment, 'f', -1, 64))
			}

			doc, err := document.Render(document.FromParams(params, documentDefaults(cfg.Document, time.Now())))
			if err != nil {
				return err
			}
			return writeDocument(cmd.OutOrStdout(), out, format, doc)
		},
	}

	for _, key := range []string{"scope", "name", "address", "phone", "email", "timeline", "budget", "terms"} {
		values[key] = cmd.Flags().String(key, "", key+" text")
	}
	cmd.Flags().Float64Var(&downPayment, "down-payment", 50, "down payment percent (0-100)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the proposal to this file instead of stdout")
	cmd.Flags().StringVar(&format, "format", "markdown", "output format (markdown, html)")
	return cmd
}
