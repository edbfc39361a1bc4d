package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/huquq-center/insaf/internal/portal"
	"github.com/huquq-center/insaf/model"
)

func newCasesCmd(app *App) *cobra.Command {
	var status string
	var page int

	cmd := &cobra.Command{
		Use:   "cases [id]",
		Short: "List cases, or show one case in full",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				c, err := app.svc.GetCase(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), c)
			}

			cases, err := app.svc.ListCases(cmd.Context(), portal.CaseFilter{Status: status, Page: page})
			if err != nil {
				return err
			}
			for _, c := range cases {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%s\n",
					c.CaseNumber, c.Status, c.DetaineeName, c.UpdatedAt.Format("2006-01-02"))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "filter by case status")
	cmd.Flags().IntVar(&page, "page", 0, "result page")

	cmd.AddCommand(&cobra.Command{
		Use:   "set-status <id> <status> [note]",
		Short: "Move a case to a new status",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			note := ""
			if len(args) == 3 {
				note = args[2]
			}
			c, err := app.svc.UpdateCaseStatus(cmd.Context(), args[0], args[1], note)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", c.CaseNumber, c.Status)
			return nil
		},
	})
	return cmd
}

func newTrackCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "track <phone> <case-number>",
		Short: "Track a case without logging in",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := app.svc.TrackCase(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", res.CaseNumber, res.Status)
			for _, ev := range res.History {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s  %s  %s\n",
					ev.Timestamp.Format("2006-01-02"), ev.Status, ev.Note)
			}
			return nil
		},
	}
}

func newMessagesCmd(app *App) *cobra.Command {
	var page int

	cmd := &cobra.Command{
		Use:   "messages <case-id>",
		Short: "Read a case's message thread",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			msgs, err := app.svc.ListMessages(cmd.Context(), args[0], page)
			if err != nil {
				return err
			}
			for _, m := range msgs.Items {
				fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s: %s\n",
					m.SentAt.Format("2006-01-02 15:04"), m.SenderName, m.Body)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&page, "page", 0, "result page")

	var attachments []string
	send := &cobra.Command{
		Use:   "send <case-id> <body>",
		Short: "Post a message on the case thread",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := app.svc.SendMessage(cmd.Context(), args[0], args[1], attachments)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "sent %s\n", msg.ID)
			return nil
		},
	}
	send.Flags().StringArrayVar(&attachments, "attach", nil, "document reference to attach (repeatable)")

	cmd.AddCommand(send)
	return cmd
}

func newNotificationsCmd(app *App) *cobra.Command {
	var page int

	cmd := &cobra.Command{
		Use:   "notifications",
		Short: "List notifications",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := app.svc.ListNotifications(cmd.Context(), page)
			if err != nil {
				return err
			}
			for _, n := range res.Items {
				marker := " "
				if !n.Read {
					marker = "*"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\t%s\t%s\n", marker, n.ID, n.Kind, n.Title)
			}
			if res.Unread > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "%d unread\n", res.Unread)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&page, "page", 0, "result page")

	cmd.AddCommand(&cobra.Command{
		Use:   "read <id>",
		Short: "Mark a notification as read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.svc.MarkNotificationRead(cmd.Context(), args[0])
		},
	})
	return cmd
}

func newVisitsCmd(app *App) *cobra.Command {
	var caseID string

	cmd := &cobra.Command{
		Use:   "visits",
		Short: "List scheduled detainee visits",
		RunE: func(cmd *cobra.Command, args []string) error {
			visits, err := listVisits(cmd, app, caseID)
			if err != nil {
				return err
			}
			for _, v := range visits {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%s\n",
					v.ScheduledAt.Format("2006-01-02 15:04"), v.Facility, v.Status, v.CaseID)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&caseID, "case", "", "limit to one case")
	return cmd
}

func listVisits(cmd *cobra.Command, app *App, caseID string) ([]model.Visit, error) {
	if caseID != "" {
		return app.svc.ListCaseVisits(cmd.Context(), caseID)
	}
	return app.svc.ListVisits(cmd.Context())
}

func newProfileCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show the lawyer profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			profile, err := app.svc.GetProfile(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), profile)
		},
	}

	var name, phone, barNumber string
	update := &cobra.Command{
		Use:   "update",
		Short: "Edit profile fields",
		RunE: func(cmd *cobra.Command, args []string) error {
			profile, err := app.svc.UpdateProfile(cmd.Context(), portal.ProfileUpdate{
				Name:      name,
				Phone:     phone,
				BarNumber: barNumber,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), profile)
		},
	}
	update.Flags().StringVar(&name, "name", "", "display name")
	update.Flags().StringVar(&phone, "phone", "", "contact phone")
	update.Flags().StringVar(&barNumber, "bar-number", "", "bar registration number")

	var current, newPassword string
	password := &cobra.Command{
		Use:   "change-password",
		Short: "Change the account password",
		RunE: func(cmd *cobra.Command, args []string) error {
			if current == "" || newPassword == "" {
				return fmt.Errorf("--current and --new are required")
			}
			if err := app.svc.ChangePassword(cmd.Context(), current, newPassword); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "password changed")
			return nil
		},
	}
	password.Flags().StringVar(&current, "current", "", "current password")
	password.Flags().StringVar(&newPassword, "new", "", "new password")

	cmd.AddCommand(update, password)
	return cmd
}

func newConstantsCmd(app *App) *cobra.Command {
	var lang string

	cmd := &cobra.Command{
		Use:   "constants",
		Short: "Show the portal's localized lookup tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			locale := lang
			if locale == "" {
				locale = app.cfg.Portal.DefaultLang
			}
			data, err := app.constants.EnsureLoaded(cmd.Context(), locale)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), data)
		},
	}
	cmd.Flags().StringVar(&lang, "lang", "", "locale (ar or en)")
	return cmd
}
