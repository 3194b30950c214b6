package main

import (
	"fmt"
	"net/url"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	messagesCmd := &cobra.Command{Use: "messages", Short: "Message operations"}

	var asUser, to, content, fileRef string
	sendCmd := &cobra.Command{
		Use:   "send",
		Short: "Send a message",
		RunE: func(cmd *cobra.Command, args []string) error {
			if asUser == "" || to == "" {
				return fmt.Errorf("--as and --to required")
			}
			payload := map[string]interface{}{"recipientId": to}
			switch {
			case content != "" && fileRef == "":
				payload["messageType"] = "text"
				payload["content"] = content
			case fileRef != "" && content == "":
				payload["messageType"] = "file"
				payload["fileRef"] = fileRef
			default:
				return fmt.Errorf("exactly one of --content or --file required")
			}
			data, err := doPostJSON(fmt.Sprintf("%s/api/users/%s/messages/%s", apiFlag, asUser, to), payload)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	sendCmd.Flags().StringVarP(&asUser, "as", "u", "", "Sender user ID (required)")
	sendCmd.Flags().StringVarP(&to, "to", "t", "", "Recipient user ID (required)")
	sendCmd.Flags().StringVarP(&content, "content", "c", "", "Text content")
	sendCmd.Flags().StringVarP(&fileRef, "file", "f", "", "File reference")
	messagesCmd.AddCommand(sendCmd)

	historyCmd := &cobra.Command{
		Use:   "history USER_ID CONTACT_ID",
		Short: "Fetch conversation history (marks it read)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := doGet(fmt.Sprintf("%s/api/users/%s/messages/%s", apiFlag, args[0], args[1]))
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	messagesCmd.AddCommand(historyCmd)

	readCmd := &cobra.Command{
		Use:   "mark-read USER_ID CONTACT_ID",
		Short: "Mark all messages from a contact as read",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := doPostJSON(fmt.Sprintf("%s/api/users/%s/messages/%s/read", apiFlag, args[0], args[1]), map[string]string{})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	messagesCmd.AddCommand(readCmd)

	var unarchive bool
	archiveCmd := &cobra.Command{
		Use:   "archive USER_ID CONTACT_ID",
		Short: "Archive (or unarchive) a conversation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := map[string]bool{"archived": !unarchive}
			data, err := doPostJSON(fmt.Sprintf("%s/api/users/%s/conversations/%s/archive", apiFlag, args[0], args[1]), payload)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	archiveCmd.Flags().BoolVar(&unarchive, "undo", false, "Clear the archive flag instead of setting it")
	messagesCmd.AddCommand(archiveCmd)

	conversationsCmd := &cobra.Command{
		Use:   "conversations USER_ID [SEARCH]",
		Short: "List a user's conversations",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			u := fmt.Sprintf("%s/api/users/%s/conversations", apiFlag, args[0])
			if len(args) == 2 {
				u += "?search=" + url.QueryEscape(args[1])
			}
			data, err := doGet(u)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	messagesCmd.AddCommand(conversationsCmd)

	rootCmd.AddCommand(messagesCmd)
}
