package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/kjstillabower/weather-desk/internal/cache"
	"github.com/kjstillabower/weather-desk/internal/client"
	"github.com/kjstillabower/weather-desk/internal/config"
	"github.com/kjstillabower/weather-desk/internal/forecast"
	"github.com/kjstillabower/weather-desk/internal/history"
	"github.com/kjstillabower/weather-desk/internal/models"
	"github.com/kjstillabower/weather-desk/internal/observability"
	"github.com/kjstillabower/weather-desk/internal/service"
	"github.com/kjstillabower/weather-desk/internal/validation"
)

func newWeatherCmd() *cobra.Command {
	var units string
	cmd := &cobra.Command{
		Use:   "weather <city>",
		Short: "Look up current conditions and the daily forecast for a city",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := observability.NewCLILogger()
			if err != nil {
				return fmt.Errorf("logger: %w", err)
			}
			defer func() { _ = logger.Sync() }()

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			weatherClient, err := newWeatherClient(cfg, logger)
			if err != nil {
				return err
			}
			searches, err := history.Open(cfg.HistoryFile, cfg.HistoryMaxEntries)
			if err != nil {
				return fmt.Errorf("search history: %w", err)
			}
			svc := service.NewWeatherService(weatherClient, cache.NewInMemoryCache(), searches, service.Options{
				TTL:           cfg.CacheTTL,
				DefaultUnits:  cfg.Units,
				CityMinLength: cfg.CityMinLength,
				CityMaxLength: cfg.CityMaxLength,
			})

			report, err := svc.GetReport(cmd.Context(), args[0], units)
			if err != nil {
				return errors.New(lookupMessage(err))
			}
			printReport(cmd.OutOrStdout(), report)
			return nil
		},
	}
	cmd.Flags().StringVarP(&units, "units", "u", "", "metric, imperial or standard (default from config)")
	return cmd
}

// lookupMessage returns the text shown for a failed lookup. Input errors keep their own
// wording; everything else uses the weather client's user-facing message.
func lookupMessage(err error) string {
	if msg, ok := validation.Message(err); ok {
		return msg
	}
	if errors.Is(err, service.ErrInvalidUnits) {
		return service.ErrInvalidUnits.Error()
	}
	return client.Message(err)
}

func printReport(w io.Writer, r models.Report) {
	temp, wind := forecast.UnitSymbols(r.Units)
	c := r.Current
	if c.Country != "" {
		fmt.Fprintf(w, "%s, %s\n", c.City, c.Country)
	} else {
		fmt.Fprintln(w, c.City)
	}
	fmt.Fprintf(w, "  %s  %.1f%s (feels like %.1f%s)\n", c.Theme.Label, c.Temperature, temp, c.FeelsLike, temp)
	fmt.Fprintf(w, "  %s, humidity %d%%, wind %.1f %s\n", c.Description, c.Humidity, c.WindSpeed, wind)
	if len(r.Daily) == 0 {
		return
	}
	fmt.Fprintln(w, "Forecast:")
	for _, d := range r.Daily {
		fmt.Fprintf(w, "  %s %s  %.1f%s  %s\n", d.Day, d.Date, d.Temperature, temp, d.Description)
	}
}
