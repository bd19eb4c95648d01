package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/alfredjeanlab/formdesk/internal/model"
	"github.com/spf13/cobra"
)

var uploadCmd = &cobra.Command{
	Use:     "upload <file>",
	Short:   "Upload an attachment, avatar or knowledgebase file",
	GroupID: "tickets",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		typ, _ := cmd.Flags().GetString("type")
		uploadType := model.UploadType(typ)
		if !uploadType.IsValid() {
			return fmt.Errorf("invalid upload type %q", typ)
		}

		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		u, err := formsClient.Upload(cmd.Context(), uploadType, filepath.Base(args[0]), f)
		if err != nil {
			return fmt.Errorf("uploading %s: %w", args[0], err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), u)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s (%s, %d bytes)\n", u.URL, u.ContentType, u.Size)
		return nil
	},
}

func init() {
	uploadCmd.Flags().String("type", string(model.UploadTicketAttachment), "upload type (ticket_attachment, knowledgebase or avatar)")
}
