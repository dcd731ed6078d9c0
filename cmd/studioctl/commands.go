package main

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/ksred/studio-payroll/internal/calendar"
	"github.com/ksred/studio-payroll/internal/directory"
	"github.com/ksred/studio-payroll/internal/settlement"
	"github.com/ksred/studio-payroll/internal/types"
)

func (a *app) loginCmd() *cobra.Command {
	var creds types.Credentials
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			var token types.TokenResponse
			if err := a.client.Post(cmd.Context(), "/auth/login", creds, &token); err != nil {
				return fmt.Errorf("login failed: %w", err)
			}
			if err := a.store.Save(token.AccessToken); err != nil {
				return err
			}
			a.client.Session().SetToken(token.AccessToken)
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s until %s\n", creds.Email, token.Expiration.Local().Format(time.RFC1123))
			return nil
		},
	}
	cmd.Flags().StringVar(&creds.Email, "email", "", "account email")
	cmd.Flags().StringVar(&creds.Password, "password", "", "account password")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("password")
	return cmd
}

func (a *app) signupCmd() *cobra.Command {
	var creds types.Credentials
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an operator account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.client.Post(cmd.Context(), "/auth/signup", creds, nil); err != nil {
				return fmt.Errorf("sign up failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Account created, you can now log in")
			return nil
		},
	}
	cmd.Flags().StringVar(&creds.Email, "email", "", "account email")
	cmd.Flags().StringVar(&creds.Password, "password", "", "password, at least 8 characters")
	cmd.Flags().StringVar(&creds.Name, "name", "", "display name, at most 20 characters")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("password")
	return cmd
}

func (a *app) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			a.client.Session().Invalidate()
			if err := a.store.Clear(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func (a *app) settlementsCmd() *cobra.Command {
	var (
		year, month int
		detailID    int64
		exportPath  string
	)

	cmd := &cobra.Command{
		Use:   "settlements",
		Short: "Show the monthly payroll report",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireLogin(); err != nil {
				return err
			}

			now := time.Now()
			presenter := settlement.NewPresenter(settlement.NewRemoteFetcher(a.client), now)

			period := settlement.CurrentPeriod(now)
			if year != 0 {
				period.Year = year
			}
			if month != 0 {
				period.Month = month
			}

			snap, err := presenter.SelectPeriod(cmd.Context(), period)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if err := settlement.WriteReport(out, snap); err != nil {
				return err
			}
			if snap.State == settlement.StateFailed {
				return snap.Err
			}

			if detailID != 0 {
				detail, err := presenter.Expand(detailID)
				if err != nil {
					return err
				}
				fmt.Fprintln(out)
				if err := settlement.WriteDetail(out, detail); err != nil {
					return err
				}
			}

			if exportPath != "" {
				f, err := os.Create(exportPath)
				if err != nil {
					return fmt.Errorf("failed to create export file: %w", err)
				}
				defer f.Close()
				if err := settlement.ExportXLSX(f, presenter.Snapshot()); err != nil {
					return err
				}
				fmt.Fprintf(out, "\nExported %s to %s\n", settlement.SheetName(snap.Period), exportPath)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&year, "year", 0, "report year, defaults to the current year")
	cmd.Flags().IntVar(&month, "month", 0, "report month 1-12, defaults to the current month")
	cmd.Flags().Int64Var(&detailID, "detail", 0, "show the breakdown for this instructor id")
	cmd.Flags().StringVar(&exportPath, "export", "", "write the report to this .xlsx file")
	return cmd
}

func (a *app) instructorsCmd() *cobra.Command {
	svc := directory.NewService(a.client)
	cmd := &cobra.Command{Use: "instructors", Short: "List or add instructors"}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List instructors",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireLogin(); err != nil {
				return err
			}
			instructors, err := svc.ListInstructors(cmd.Context())
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tPHONE\tBASE\tPER SESSION\tCOLOR")
			for _, i := range instructors {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", i.ID, i.Name, i.Phone,
					settlement.FormatWon(i.BasicPay), settlement.FormatWon(i.Rate), i.Color)
			}
			return tw.Flush()
		},
	})

	var (
		in          types.Instructor
		basic, rate string
	)
	add := &cobra.Command{
		Use:   "add",
		Short: "Add an instructor",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireLogin(); err != nil {
				return err
			}
			var err error
			if in.BasicPay, err = decimal.NewFromString(basic); err != nil {
				return fmt.Errorf("invalid --basic-pay: %w", err)
			}
			if in.Rate, err = decimal.NewFromString(rate); err != nil {
				return fmt.Errorf("invalid --rate: %w", err)
			}

			created, err := svc.CreateInstructor(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added instructor #%d %s\n", created.ID, created.Name)
			return nil
		},
	}
	add.Flags().StringVar(&in.Name, "name", "", "instructor name")
	add.Flags().StringVar(&in.Phone, "phone", "", "phone number")
	add.Flags().StringVar(&in.Color, "color", "", "calendar color, defaults to "+directory.DefaultColor)
	add.Flags().StringVar(&basic, "basic-pay", "0", "monthly base pay in won")
	add.Flags().StringVar(&rate, "rate", "0", "pay per session in won")
	add.MarkFlagRequired("name")
	cmd.AddCommand(add)

	return cmd
}

func (a *app) workspacesCmd() *cobra.Command {
	svc := directory.NewService(a.client)
	cmd := &cobra.Command{Use: "workspaces", Short: "List or add workspaces"}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List workspaces",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireLogin(); err != nil {
				return err
			}
			workspaces, err := svc.ListWorkspaces(cmd.Context())
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME")
			for _, w := range workspaces {
				fmt.Fprintf(tw, "%d\t%s\n", w.ID, w.Name)
			}
			return tw.Flush()
		},
	})

	var name string
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireLogin(); err != nil {
				return err
			}
			created, err := svc.CreateWorkspace(cmd.Context(), name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added workspace #%d %s\n", created.ID, created.Name)
			return nil
		},
	}
	add.Flags().StringVar(&name, "name", "", "workspace name")
	add.MarkFlagRequired("name")
	cmd.AddCommand(add)

	return cmd
}

func (a *app) membersCmd() *cobra.Command {
	svc := directory.NewService(a.client)
	cmd := &cobra.Command{Use: "members", Short: "List or add members"}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List members",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireLogin(); err != nil {
				return err
			}
			members, err := svc.ListMembers(cmd.Context())
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tPHONE\tINSTRUCTOR")
			for _, m := range members {
				instructor := m.InstructorName
				if instructor == "" {
					instructor = "-"
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", m.ID, m.Name, m.Phone, instructor)
			}
			return tw.Flush()
		},
	})

	var in types.Member
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a member",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireLogin(); err != nil {
				return err
			}
			created, err := svc.CreateMember(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added member #%d %s\n", created.ID, created.Name)
			return nil
		},
	}
	add.Flags().StringVar(&in.Name, "name", "", "member name")
	add.Flags().StringVar(&in.Phone, "phone", "", "phone number")
	add.Flags().Int64Var(&in.InstructorID, "instructor", 0, "assigned instructor id")
	add.MarkFlagRequired("name")
	cmd.AddCommand(add)

	return cmd
}

func (a *app) calendarCmd() *cobra.Command {
	svc := calendar.NewService(a.client)
	cmd := &cobra.Command{
		Use:   "calendar",
		Short: "Show class slots, book, cancel or move them",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireLogin(); err != nil {
				return err
			}
			board, err := svc.FetchBoard(cmd.Context())
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "EVENT\tSTART\tEND\tINSTRUCTOR\tMEMBERS")
			for _, e := range board.Events {
				names := ""
				for i, m := range e.Members {
					if i > 0 {
						names += ", "
					}
					names += m.MemberName
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.ID,
					e.Start.Local().Format("2006-01-02 15:04"), e.End.Local().Format("15:04"), e.Title, names)
			}
			return tw.Flush()
		},
	}

	var (
		req      types.ReservationRequest
		start    string
		duration time.Duration
	)
	book := &cobra.Command{
		Use:   "book",
		Short: "Book a member into a class",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireLogin(); err != nil {
				return err
			}
			t, err := time.ParseInLocation("2006-01-02T15:04", start, time.Local)
			if err != nil {
				return fmt.Errorf("invalid --start, expected YYYY-MM-DDTHH:MM: %w", err)
			}
			req.StartTime, req.EndTime = t, t.Add(duration)

			created, err := svc.Book(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Booked reservation #%d\n", created.ID)
			return nil
		},
	}
	book.Flags().Int64Var(&req.MemberID, "member", 0, "member id")
	book.Flags().Int64Var(&req.InstructorID, "instructor", 0, "instructor id")
	book.Flags().StringVar(&start, "start", "", "start time, YYYY-MM-DDTHH:MM local")
	book.Flags().DurationVar(&duration, "duration", time.Hour, "class length")
	book.MarkFlagRequired("member")
	book.MarkFlagRequired("instructor")
	book.MarkFlagRequired("start")

	cancel := &cobra.Command{
		Use:   "cancel RESERVATION_ID",
		Short: "Cancel a reservation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireLogin(); err != nil {
				return err
			}
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid reservation id %q", args[0])
			}
			if err := svc.Cancel(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cancelled reservation #%d\n", id)
			return nil
		},
	}

	var moveTo string
	var moveDuration time.Duration
	move := &cobra.Command{
		Use:   "move EVENT_ID",
		Short: "Move every reservation of a class slot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireLogin(); err != nil {
				return err
			}
			t, err := time.ParseInLocation("2006-01-02T15:04", moveTo, time.Local)
			if err != nil {
				return fmt.Errorf("invalid --to, expected YYYY-MM-DDTHH:MM: %w", err)
			}

			board, err := svc.FetchBoard(cmd.Context())
			if err != nil {
				return err
			}
			for _, e := range board.Events {
				if e.ID != args[0] {
					continue
				}
				length := moveDuration
				if length == 0 {
					length = e.End.Sub(e.Start)
				}
				if err := svc.MoveEvent(cmd.Context(), e, t, t.Add(length)); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Moved %d reservation(s) to %s\n", len(e.ReservationIDs), t.Format("2006-01-02 15:04"))
				return nil
			}
			return fmt.Errorf("no class slot %q", args[0])
		},
	}
	move.Flags().StringVar(&moveTo, "to", "", "new start time, YYYY-MM-DDTHH:MM local")
	move.Flags().DurationVar(&moveDuration, "duration", 0, "new class length, defaults to the current one")
	move.MarkFlagRequired("to")

	cmd.AddCommand(book, cancel, move)
	return cmd
}
