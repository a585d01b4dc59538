package viz

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/san-kum/meshftle/internal/dynamo"
	"github.com/san-kum/meshftle/internal/ftle"
)

const barWidth = 40

// ProgressMsg reports particles finished in one direction.
type ProgressMsg struct {
	Direction dynamo.Direction
	Done      int
	Total     int
}

// DoneMsg ends the view with the computation's outcome.
type DoneMsg struct {
	Result *ftle.Result
	Err    error
}

type TickMsg time.Time

// ProgressModel shows one bar per direction while a computation runs.
type ProgressModel struct {
	title    string
	done     [2]int
	total    [2]int
	started  time.Time
	elapsed  time.Duration
	frame    int
	cancel   context.CancelFunc
	result   *ftle.Result
	err      error
	finished bool
}

func NewProgressModel(title string, cancel context.CancelFunc) ProgressModel {
	return ProgressModel{title: title, cancel: cancel, started: time.Now()}
}

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m ProgressModel) Init() tea.Cmd { return tick() }

func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if m.cancel != nil {
				m.cancel()
			}
			return m, nil
		}
	case ProgressMsg:
		d := int(msg.Direction)
		if d >= 0 && d < 2 && msg.Done >= m.done[d] {
			m.done[d], m.total[d] = msg.Done, msg.Total
		}
	case TickMsg:
		m.frame++
		m.elapsed = time.Since(m.started)
		if m.finished {
			return m, nil
		}
		return m, tick()
	case DoneMsg:
		m.result, m.err, m.finished = msg.Result, msg.Err, true
		m.elapsed = time.Since(m.started)
		return m, tea.Quit
	}
	return m, nil
}

func (m ProgressModel) fraction(d dynamo.Direction) float64 {
	if m.total[d] == 0 {
		return 0
	}
	return float64(m.done[d]) / float64(m.total[d])
}

func (m ProgressModel) View() string {
	var b strings.Builder
	b.WriteString(Title.Render(m.title) + "\n\n")
	for _, d := range []dynamo.Direction{dynamo.Forward, dynamo.Backward} {
		b.WriteString(fmt.Sprintf("%s %s %d/%d\n",
			MetricLabel.Render(d.String()), ProgressBar(m.fraction(d), barWidth), m.done[d], m.total[d]))
	}
	b.WriteString("\n")
	switch {
	case m.finished && m.err != nil:
		b.WriteString(StatusError.Render("failed: " + m.err.Error()))
	case m.finished:
		b.WriteString(StatusOK.Render(fmt.Sprintf("done in %s", m.elapsed.Round(time.Millisecond))))
	default:
		b.WriteString(Subtle.Render(spinner(m.frame)+" "+m.elapsed.Round(100*time.Millisecond).String()) + "  " + KeyHint.Render("q: cancel"))
	}
	return b.String() + "\n"
}

func (m ProgressModel) Result() (*ftle.Result, error) { return m.result, m.err }

func spinner(frame int) string {
	frames := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
	return frames[frame%len(frames)]
}

// RunWithProgress runs compute under a live progress view. compute receives
// a context the view cancels on q or Ctrl+C, and a progress hook to pass to
// ftle.Options.
func RunWithProgress(ctx context.Context, title string, compute func(ctx context.Context, progress func(dynamo.Direction, int, int)) (*ftle.Result, error)) (*ftle.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewProgressModel(title, cancel))
	go func() {
		res, err := compute(ctx, func(d dynamo.Direction, done, total int) {
			p.Send(ProgressMsg{Direction: d, Done: done, Total: total})
		})
		p.Send(DoneMsg{Result: res, Err: err})
	}()

	final, err := p.Run()
	if err != nil {
		return nil, err
	}
	return final.(ProgressModel).Result()
}
