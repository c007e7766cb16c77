package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/unclebandit/jobmailer-backend/internal/config"
	"github.com/unclebandit/jobmailer-backend/internal/model"
	"github.com/unclebandit/jobmailer-backend/internal/repository"
	"github.com/unclebandit/jobmailer-backend/internal/service"
)

var sampleRecipients = []string{
	"careers@microsoft.com",
	"jobs@google.com",
	"recruiting@apple.com",
	"hr@initech.net",
	"talent@careers-acme.io",
	"contact@consulting-firm.co.uk",
	"friend@gmail.com",
	"hiring@globex.de",
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert sample send records for development",
	Long: `Seed inserts one record per sample recipient, spread over the last
few days, so listings, stats and exports have data to show.
Nothing is sent.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		count, _ := cmd.Flags().GetInt("count")
		return withStore(func(_ *config.Config, conn *sql.DB) error {
			repo := repository.NewSendRecordRepository(conn)
			return seed(cmd.Context(), repo, time.Now(), count, cmd.OutOrStdout())
		})
	},
}

// seed writes sample records dated backwards from now; count <= 0 means every sample
func seed(ctx context.Context, repo repository.SendRecordRepositoryInterface, now time.Time, count int, out io.Writer) error {
	if count <= 0 || count > len(sampleRecipients) {
		count = len(sampleRecipients)
	}
	for i, addr := range sampleRecipients[:count] {
		company := service.ExtractCompanyName(addr)
		day := now.AddDate(0, 0, -i)
		rec := &model.SendRecord{
			ToEmail:     addr,
			CompanyName: company,
			Subject:     "Application for Software Engineer at " + company,
			Body:        service.RenderTemplate("Dear {company} team,\n\nPlease find my resume attached.", map[string]string{"company": company}),
			SentDate:    day.Format(model.DateLayout),
			SentTime:    day.Format(model.TimeLayout),
		}
		if err := repo.Create(ctx, rec); err != nil {
			return fmt.Errorf("failed to seed %s: %w", addr, err)
		}
		fmt.Fprintf(out, "Seeded: %s (%s)\n", addr, company)
	}
	fmt.Fprintln(out, "Database seeding completed successfully!")
	return nil
}
