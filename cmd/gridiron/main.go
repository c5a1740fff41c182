// Command gridiron plays a drive interactively in the terminal.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/brensch/gridiron/config"
	"github.com/brensch/gridiron/drive"
	"github.com/brensch/gridiron/game"
	"github.com/brensch/gridiron/logging"
	"github.com/brensch/gridiron/rules"
	"github.com/brensch/gridiron/store"
	tea "github.com/charmbracelet/bubbletea"
)

var keyIntents = map[string]rules.Intent{
	" ":     rules.Snap(),
	"up":    rules.Move(rules.MoveUp),
	"w":     rules.Move(rules.MoveUp),
	"down":  rules.Move(rules.MoveDown),
	"s":     rules.Move(rules.MoveDown),
	"left":  rules.Move(rules.MoveLeft),
	"a":     rules.Move(rules.MoveLeft),
	"right": rules.Move(rules.MoveRight),
	"d":     rules.Move(rules.MoveRight),
	"tab":   rules.Pass(),
	"p":     rules.Pass(),
	"k":     rules.Punt(),
	"enter": rules.ContinueDrive(),
	"c":     rules.ContinueDrive(),
}

type model struct {
	session *drive.Session
	status  string
	log     []string
}

func initialModel(session *drive.Session) model {
	return model{session: session, status: "space to snap"}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	}

	in, ok := keyIntents[key.String()]
	if !ok {
		return m, nil
	}
	res := m.session.Submit(in)
	m.status = describe(in, res)
	if res.Accepted {
		m.log = append([]string{m.status}, m.log...)
		if len(m.log) > 5 {
			m.log = m.log[:5]
		}
	}
	return m, nil
}

func describe(in rules.Intent, res rules.TickResult) string {
	if !res.Accepted {
		return fmt.Sprintf("%s: no effect", in)
	}
	notable := make([]string, 0, len(res.Events))
	for _, e := range res.Events {
		switch e.Kind {
		case rules.EventMove, rules.EventReceiverStep, rules.EventBlockerStep, rules.EventDefenderStep:
			continue
		}
		notable = append(notable, strings.ReplaceAll(string(e.Kind), "_", " "))
	}
	if len(notable) == 0 {
		return in.String()
	}
	return in.String() + ": " + strings.Join(notable, ", ")
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(drive.Render(m.session.State()))
	b.WriteString("\n" + m.status + "\n\n")
	for _, l := range m.log {
		b.WriteString("  " + l + "\n")
	}
	b.WriteString("\nspace snap  arrows/wasd move  tab/p pass  k punt  enter/c continue  q quit\n")
	return b.String()
}

func main() {
	logPath := flag.String("log-file", config.GetEnvOrDefault("LOG_FILE", "gridiron.log"), "Log file (the terminal is used by the UI)")
	logLevel := flag.String("log-level", config.GetEnvOrDefault("LOG_LEVEL", "info"), "debug, info, warn or error")
	archiveDir := flag.String("archive-dir", config.GetEnvOrDefault("ARCHIVE_DIR", ""), "If set, write the session's ticks and drives as parquet on exit")
	settings := config.BindSettingsFlags(flag.CommandLine, game.DefaultSettings)
	flag.Parse()

	level, err := logging.ParseLevel(*logLevel)
	if err != nil {
		log.Fatal(err)
	}
	f, err := os.OpenFile(*logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		log.Fatalf("open log file: %v", err)
	}
	defer f.Close()
	log.SetOutput(f)
	logger := logging.New(f, level, false)

	session := drive.NewSession(drive.Config{
		ID:       "local",
		Settings: settings.Normalize(),
		Logger:   logger,
		Record:   *archiveDir != "",
		Source:   "tui",
	})

	p := tea.NewProgram(initialModel(session), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Fatal(err)
	}

	if *archiveDir != "" {
		ticks, drives := session.TakeRows()
		tickPath, drivePath, err := store.WriteBatchAtomic(*archiveDir, ticks, drives)
		if err != nil {
			log.Fatalf("archive session: %v", err)
		}
		fmt.Printf("archived %d ticks to %s and %d drives to %s\n", len(ticks), tickPath, len(drives), drivePath)
	}
	st := session.State()
	fmt.Printf("final score: home %d, away %d\n", st.Score[game.Home], st.Score[game.Away])
}
