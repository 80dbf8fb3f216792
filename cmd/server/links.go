package main

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"rebot/internal/links"
)

func newLinksCmd() *cobra.Command {
	var vocabulary bool
	cmd := &cobra.Command{
		Use:   "links [text...]",
		Short: "Tokenize text with the link grammar and print the result as JSON",
		Example: `  rebot links "See the [[market trends]] and [[schools]]"
  rebot links --vocabulary`,
		RunE: func(cmd *cobra.Command, args []string) error {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if vocabulary {
				return enc.Encode(links.Vocabulary())
			}
			if len(args) == 0 {
				return cmd.Usage()
			}

			markup := links.Tokenize(strings.Join(args, " "))
			found := links.Extract(markup)
			if found == nil {
				found = []links.RenderedLink{}
			}
			return enc.Encode(struct {
				HTML  string               `json:"html"`
				Links []links.RenderedLink `json:"links"`
			}{markup, found})
		},
	}
	cmd.Flags().BoolVar(&vocabulary, "vocabulary", false, "print the token vocabulary instead")
	return cmd
}
