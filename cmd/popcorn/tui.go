package main

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/abelbrown/popcorn/internal/events"
	"github.com/abelbrown/popcorn/internal/logging"
	"github.com/abelbrown/popcorn/internal/session"
	"github.com/abelbrown/popcorn/internal/ui"
)

func runTUI(cmd *cobra.Command, args []string) error {
	client, err := rt.client()
	if err != nil {
		return err
	}
	list, err := rt.watchedList()
	if err != nil {
		return err
	}

	logger := rt.eventLogger()
	ring := events.NewRing(events.DefaultRingSize)
	logger.SetRing(ring)

	watched := list.Load()
	logger.Emit(events.Event{Kind: events.KindStoreLoad, Comp: "main", Count: len(watched)})
	logging.Info("watched list loaded", "count", len(watched))

	sess := session.New(session.Config{
		Searcher: client,
		Details:  client,
		Store:    list,
		Watched:  watched,
		Events:   logger,
		Context:  cmd.Context(),
	})
	defer sess.Close()

	app := ui.NewApp(sess, ui.Options{
		Events:     logger,
		Ring:       ring,
		MaxResults: rt.cfg.UI.MaxResults,
		ShowHelp:   rt.cfg.UI.ShowHelp,
	})

	program := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	if _, err := program.Run(); err != nil {
		logging.Error("program exited", "error", err)
		return err
	}
	return nil
}
