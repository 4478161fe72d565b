package viz

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/san-kum/sdesim/internal/analysis"
	"github.com/san-kum/sdesim/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

const (
	historyCapacity = 600
	graphWidth      = 60
	graphHeight     = 12
	bandLow         = 0.1
	bandHigh        = 0.9
	updateBuffer    = 64
)

var (
	panelStyle       = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 1)
	activeParamStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
)

// Runner integrates once, calling emit after every accepted step until it
// returns false or ctx is done.
type Runner func(ctx context.Context, emit func(t float64, y dynamo.State) bool) error

// StepMsg summarizes one accepted step.
type StepMsg struct {
	gen      int
	T        float64
	Mean     float64
	Low      float64
	High     float64
	MeanNorm float64
}

type doneMsg struct {
	gen int
	err error
}

// Live follows a running integration. Pausing stops draining updates, so
// the integration blocks in its callback until resumed.
type Live struct {
	name   string
	coord  int
	run    Runner
	tuning dynamo.Configurable

	gen     int
	cancel  context.CancelFunc
	updates chan tea.Msg
	waiting bool

	t, meanNorm     float64
	steps           int
	mean, low, high []float64
	paused, done    bool
	err             error

	params        map[string]float64
	initialParams map[string]float64
	paramKeys     []string
	selected      int
	showHelp      bool
}

// NewLive builds the view. tuning may be nil; otherwise its parameters,
// except "dim", can be scaled from the keyboard.
func NewLive(name string, coord int, tuning dynamo.Configurable, run Runner) *Live {
	m := &Live{
		name:          name,
		coord:         coord,
		run:           run,
		tuning:        tuning,
		params:        make(map[string]float64),
		initialParams: make(map[string]float64),
	}
	if tuning != nil {
		for k, v := range tuning.GetParams() {
			if k == "dim" {
				continue
			}
			m.params[k] = v
			m.initialParams[k] = v
			m.paramKeys = append(m.paramKeys, k)
		}
		sort.Strings(m.paramKeys)
	}
	return m
}

func (m *Live) Init() tea.Cmd {
	return m.start()
}

// start launches a fresh integration and returns the command that waits
// for its first update. A running integration is cancelled first.
func (m *Live) start() tea.Cmd {
	if m.cancel != nil {
		m.cancel()
	}
	m.gen++
	m.t, m.steps, m.meanNorm = 0, 0, 0
	m.mean, m.low, m.high = m.mean[:0], m.low[:0], m.high[:0]
	m.done, m.err = false, nil

	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan tea.Msg, updateBuffer)
	m.cancel, m.updates = cancel, ch

	gen, coord, run := m.gen, m.coord, m.run
	go func() {
		defer close(ch)
		err := run(ctx, func(t float64, y dynamo.State) bool {
			msg := summarize(gen, coord, t, y)
			select {
			case ch <- msg:
				return true
			case <-ctx.Done():
				return false
			}
		})
		select {
		case ch <- doneMsg{gen: gen, err: err}:
		case <-ctx.Done():
		}
	}()

	m.waiting = true
	return wait(ch)
}

func wait(ch <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}

func summarize(gen, coord int, t float64, y dynamo.State) StepMsg {
	msg := StepMsg{gen: gen, T: t, Mean: math.NaN(), Low: math.NaN(), High: math.NaN()}
	if len(y) > 0 {
		if mean, lo, hi, err := analysis.Envelope([]*mat.Dense{y[0]}, coord, bandLow, bandHigh); err == nil {
			msg.Mean, msg.Low, msg.High = mean[0], lo[0], hi[0]
		}
	}
	if b := y.Batch(); b > 0 {
		msg.MeanNorm = y.Norm() / math.Sqrt(float64(b))
	}
	return msg
}

func (m *Live) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		case " ":
			m.paused = !m.paused
			return m, m.resume()
		case "r":
			return m, m.start()
		case "tab":
			if len(m.paramKeys) > 0 {
				m.selected = (m.selected + 1) % len(m.paramKeys)
			}
		case "up", "k":
			return m, m.adjustParam(1.05)
		case "down", "j":
			return m, m.adjustParam(0.95)
		case "t":
			nextTheme()
		case "?":
			m.showHelp = !m.showHelp
		}
	case StepMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		m.waiting = false
		m.record(msg)
		return m, m.resume()
	case doneMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		m.waiting = false
		m.done, m.err = true, msg.err
	}
	return m, nil
}

// resume issues the next wait unless one is outstanding or the view is
// paused.
func (m *Live) resume() tea.Cmd {
	if m.paused || m.waiting || m.done || m.updates == nil {
		return nil
	}
	m.waiting = true
	return wait(m.updates)
}

func (m *Live) record(msg StepMsg) {
	m.t, m.meanNorm = msg.T, msg.MeanNorm
	m.steps++
	m.mean = appendCapped(m.mean, msg.Mean)
	m.low = appendCapped(m.low, msg.Low)
	m.high = appendCapped(m.high, msg.High)
}

func appendCapped(s []float64, v float64) []float64 {
	s = append(s, v)
	if len(s) > historyCapacity {
		s = s[1:]
	}
	return s
}

func (m *Live) adjustParam(factor float64) tea.Cmd {
	if len(m.paramKeys) == 0 || m.tuning == nil {
		return nil
	}
	key := m.paramKeys[m.selected]
	val := m.params[key] * factor
	if err := m.tuning.SetParam(key, val); err != nil {
		m.err = err
		return nil
	}
	m.params[key] = val
	return m.start()
}

func (m *Live) View() string {
	var s strings.Builder
	s.WriteString(HeaderStyle.Render(strings.ToUpper(m.name)) + "\n")

	switch {
	case m.err != nil:
		s.WriteString(StatusFailed.Render("FAILED: "+m.err.Error()) + "\n\n")
	case m.done:
		s.WriteString(StatusRunning.Render("DONE") + "\n\n")
	case m.paused:
		s.WriteString(StatusPaused.Render("PAUSED") + "\n\n")
	default:
		s.WriteString(StatusRunning.Render("RUNNING") + "\n\n")
	}

	caption := fmt.Sprintf("y[%d]: batch mean and %.0f%%-%.0f%% band", m.coord, 100*bandLow, 100*bandHigh)
	s.WriteString(PlotPaths([][]float64{m.mean, m.low, m.high}, graphWidth, graphHeight, caption) + "\n\n")

	s.WriteString(MetricLabel.Render("Time") + MetricValue.Render(fmt.Sprintf("%.4f", m.t)) + "\n")
	s.WriteString(MetricLabel.Render("Steps") + MetricValue.Render(fmt.Sprintf("%d", m.steps)) + "\n")
	s.WriteString(MetricLabel.Render("RMS |y|") + MetricValue.Render(fmt.Sprintf("%.4g", m.meanNorm)) + "\n")

	s.WriteString("\nPARAMETERS\n")
	if len(m.paramKeys) == 0 {
		s.WriteString(MetricLabel.Render("  (none)") + "\n")
	}
	for i, k := range m.paramKeys {
		line := fmt.Sprintf("%-10s %.4g", k, m.params[k])
		if i == m.selected {
			s.WriteString(activeParamStyle.Render("> "+line) + "\n")
		} else {
			s.WriteString("  " + line + "\n")
		}
	}
	s.WriteString("\n" + KeyHint.Render("SP:Pause R:Restart Q:Quit Tab:Param ↑↓:Tune T:Theme ?:Help"))

	view := panelStyle.Render(s.String())
	if m.showHelp {
		return `
  Space    - Pause/Resume integration
  R        - Restart on the same Brownian path
  Q        - Quit
  Tab      - Cycle parameters
  Up/K     - Increase parameter (+5%), restart
  Down/J   - Decrease parameter (-5%), restart
  T        - Cycle themes
  ?        - Toggle this help
` + "\n" + view
	}
	return view
}
