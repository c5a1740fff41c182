package main

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

type GameUpdate struct {
	WorkerID int
	Seed     int64
	Steps    int
	Score    [2]int32
	Drives   int
	Err      string
}

type TickMsg time.Time

type model struct {
	gamesPlayed int
	steps       int64
	startTime   time.Time
	recentGames []string
	updates     <-chan GameUpdate
	stepCount   func() int64
}

func initialModel(updates <-chan GameUpdate, stepCount func() int64) model {
	return model{
		startTime: time.Now(),
		updates:   updates,
		stepCount: stepCount,
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func waitForUpdate(updates <-chan GameUpdate) tea.Cmd {
	return func() tea.Msg {
		u, ok := <-updates
		if !ok {
			return tea.Quit()
		}
		return u
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(waitForUpdate(m.updates), tickCmd())
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case TickMsg:
		m.steps = m.stepCount()
		return m, tickCmd()
	case GameUpdate:
		m.gamesPlayed++
		m.recentGames = append([]string{formatUpdate(msg)}, m.recentGames...)
		if len(m.recentGames) > 10 {
			m.recentGames = m.recentGames[:10]
		}
		return m, waitForUpdate(m.updates)
	}
	return m, nil
}

func formatUpdate(u GameUpdate) string {
	if u.Err != "" {
		return fmt.Sprintf("Worker %d: seed %d aborted after %d steps: %s", u.WorkerID, u.Seed, u.Steps, u.Err)
	}
	return fmt.Sprintf("Worker %d: seed %d home %d away %d, drives %d, steps %d",
		u.WorkerID, u.Seed, u.Score[0], u.Score[1], u.Drives, u.Steps)
}

func (m model) View() string {
	duration := time.Since(m.startTime)
	var gamesPerSec, stepsPerSec float64
	if duration.Seconds() >= 1 {
		gamesPerSec = float64(m.gamesPlayed) / duration.Seconds()
		stepsPerSec = float64(m.steps) / duration.Seconds()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Games Played: %d\n", m.gamesPlayed)
	fmt.Fprintf(&b, "Total Steps:  %d\n", m.steps)
	fmt.Fprintf(&b, "Duration:     %s\n", duration.Round(time.Second))
	fmt.Fprintf(&b, "Games/Sec:    %.2f\n", gamesPerSec)
	fmt.Fprintf(&b, "Steps/Sec:    %.2f\n\n", stepsPerSec)
	b.WriteString("Recent Games:\n")
	for _, g := range m.recentGames {
		b.WriteString(g + "\n")
	}
	b.WriteString("\nPress q to quit.\n")
	return b.String()
}
