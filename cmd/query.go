package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/premai-io/mii-serve/internal/config"
	"github.com/premai-io/mii-serve/internal/mii"
	"github.com/premai-io/mii-serve/pkg/api"
)

var queryCmd = &cobra.Command{
	Use:   "query <prompt>...",
	Short: "Send prompts to a running deployment",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		url, _ := cmd.Flags().GetString("url")
		deployment, _ := cmd.Flags().GetString("deployment")
		asJSON, _ := cmd.Flags().GetBool("json")

		req := &api.GenerateRequest{Prompts: args}
		if cmd.Flags().Changed("max-length") {
			n, _ := cmd.Flags().GetInt("max-length")
			req.MaxLength = &n
		}
		if cmd.Flags().Changed("max-new-tokens") {
			n, _ := cmd.Flags().GetInt("max-new-tokens")
			req.MaxNewTokens = &n
		}

		client := mii.NewClient(url, deployment)
		resps, err := client.Generate(cmd.Context(), req)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(resps)
		}
		for _, r := range resps {
			fmt.Fprintln(out, r.GeneratedText)
		}
		return nil
	},
}

func init() {
	queryCmd.Flags().String("url", fmt.Sprintf("http://127.0.0.1:%d", config.DefaultRESTfulAPIPort), "base URL of the REST API")
	queryCmd.Flags().String("deployment", config.DefaultDeploymentName, "deployment name")
	queryCmd.Flags().Int("max-length", 0, "maximum total length in tokens")
	queryCmd.Flags().Int("max-new-tokens", 0, "maximum number of generated tokens")
	queryCmd.Flags().Bool("json", false, "print raw JSON responses")
	rootCmd.AddCommand(queryCmd)
}
