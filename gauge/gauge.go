// Package gauge wires the sagitta data logger together: the command
// processor on a console, the probe sampling tick, the sample store, the
// watchdog and the config watcher, all serviced from one cooperative loop.
package gauge

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"sagitta/cmdproc"
	"sagitta/config"
	"sagitta/log"
	"sagitta/sensors"
	"sagitta/storage"
	"sagitta/watchdog"
)

// Run modes, as exposed by the Mode command.
const (
	ModeIdle    = 0
	ModeLogging = 1
)

// Gauge owns the logger's moving parts. Its command handlers may be invoked
// from several console sessions when serving over TCP, so the mutable state
// is mutex-guarded even though each individual processor is single-owner.
type Gauge struct {
	mu       sync.Mutex
	cfg      config.Config
	cfgDir   string
	state    *config.State
	store    *storage.Store
	wdt      *watchdog.Watchdog
	probes   []sensors.TemperatureProbe
	pressure sensors.PressureSensor

	mode        int
	epoch       time.Time
	lastMeasure time.Time
}

func New(cfg config.Config, cfgDir string, state *config.State, store *storage.Store,
	wdt *watchdog.Watchdog, probes []sensors.TemperatureProbe, pressure sensors.PressureSensor) *Gauge {
	return &Gauge{
		cfg:      cfg,
		cfgDir:   cfgDir,
		state:    state,
		store:    store,
		wdt:      wdt,
		probes:   probes,
		pressure: pressure,
	}
}

// NewProcessor builds a command processor for one console session, with the
// About banner as sign-on and the gauge commands registered. terminate
// controls whether the session gets the Exit builtin.
func (g *Gauge) NewProcessor(io cmdproc.IO, terminate bool) (*cmdproc.Processor, error) {
	s := &session{g: g, io: io}

	// Snapshot the config: sessions are opened from connection handlers
	// while the host loop may be hot-reloading it.
	g.mu.Lock()
	cfg := g.cfg
	g.mu.Unlock()

	flags := cmdproc.EnableSystem
	if terminate {
		flags |= cmdproc.EnableTerminate
	}
	if cfg.EchoOn {
		flags |= cmdproc.EchoOn
	}
	if cfg.CaseInsensitive {
		flags |= cmdproc.CaseInsensitive
	}

	signOn := &cmdproc.Command{
		Name:    "About",
		Help:    "Banner on start",
		Handler: s.about,
		Visible: false,
	}
	proc, err := cmdproc.Init(signOn, flags, cfg.MaxLineLen, cfg.HistoryDepth, io)
	if err != nil {
		return nil, err
	}

	for _, c := range []*cmdproc.Command{
		{Name: "Filename", Help: "Get filename (w/o args) or send new filename to gauge", Handler: s.filename, Visible: true},
		{Name: "Get", Help: "Get file %filename%", Handler: s.get, Visible: true},
		{Name: "Check", Help: "Check control of subsystems", Handler: s.check, Visible: true},
		{Name: "Ls", Help: "List of logs in the sample store", Handler: s.ls, Visible: true},
		{Name: "Mode", Help: "Select run mode (0 - do nothing; 1 - logging mode)", Handler: s.mode, Visible: true},
	} {
		if err := proc.Add(c); err != nil {
			return nil, err
		}
	}
	return proc, nil
}

// Run drives a single interactive console, the firmware's main loop: feed
// the watchdog, give the processor one timeslice, take any due measurement,
// pick up config edits, sleep briefly when idle. eof, when non-nil, lets
// the console signal that its input stream ended.
func (g *Gauge) Run(io cmdproc.IO, eof func() bool) error {
	proc, err := g.NewProcessor(io, true)
	if err != nil {
		return fmt.Errorf("gauge: console setup: %w", err)
	}
	defer proc.End()

	if g.wdt.CausedReset() {
		io.WriteLine("ERROR: Gauge has been restarted by watchdog")
		log.WarningLog.Printf("previous run was ended by the watchdog")
	}

	watcher := g.watchConfig()
	if watcher != nil {
		defer watcher.Close()
	}

	measureErrs := log.NewEvery(60 * time.Second)
	for {
		g.wdt.Service()
		if proc.Run() == cmdproc.RunExit {
			return nil
		}
		if eof != nil && eof() {
			return nil
		}
		g.measureIfDue(&io, measureErrs)
		g.pollConfig(watcher)
		if !io.DataAvailable() {
			time.Sleep(g.pollInterval())
		}
	}
}

// RunHeadless keeps the measurement side alive without a local console,
// used when the console is served over TCP. Returns when stop is closed.
func (g *Gauge) RunHeadless(stop <-chan struct{}) {
	watcher := g.watchConfig()
	if watcher != nil {
		defer watcher.Close()
	}

	measureErrs := log.NewEvery(60 * time.Second)
	for {
		select {
		case <-stop:
			return
		default:
		}
		g.wdt.Service()
		g.measureIfDue(nil, measureErrs)
		g.pollConfig(watcher)
		time.Sleep(g.pollInterval())
	}
}

func (g *Gauge) pollInterval() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	d := time.Duration(g.cfg.PollIntervalMS) * time.Millisecond
	if d <= 0 {
		d = 5 * time.Millisecond
	}
	return d
}

// millis is the firmware's measurement clock: milliseconds since logging
// mode was last activated.
func (g *Gauge) millis() int64 {
	return time.Since(g.epoch).Milliseconds()
}

// measureIfDue takes one sample when logging mode is on and the sampling
// period has elapsed. out, when non-nil, receives the sample line the way
// the firmware streamed it over the serial link; headless runs pass nil.
func (g *Gauge) measureIfDue(out *cmdproc.IO, errs *log.Every) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.mode != ModeLogging {
		return
	}
	interval := time.Duration(g.cfg.MeasureIntervalMS) * time.Millisecond
	if time.Since(g.lastMeasure) < interval {
		return
	}
	g.lastMeasure = time.Now()

	if len(g.probes) == 0 {
		if errs.ShouldLog() {
			log.ErrorLog.Printf("logging mode with no temperature probe")
		}
		return
	}
	probe := g.probes[0]
	probe.Convert()
	temp, err := probe.Temperature()
	if err != nil {
		if errs.ShouldLog() {
			log.ErrorLog.Printf("temperature read: %v", err)
		}
		return
	}
	pressure := g.pressure.Read()

	sample := storage.Sample{Millis: g.millis(), Temp: temp, Pressure: pressure}
	if err := g.store.Append(g.state.Filename, sample); err != nil {
		if errs.ShouldLog() {
			log.ErrorLog.Printf("sample append: %v", err)
		}
		if out != nil {
			out.WriteLine("Measuring mode run error")
		}
		return
	}
	if out != nil {
		out.WriteLine(fmt.Sprintf("Millis:%d | T:%.3f | P:%.3f", sample.Millis, sample.Temp, sample.Pressure))
	}
}

// watchConfig starts an fsnotify watcher on the config directory so edits
// to config.json take effect without a restart. Failure to watch is logged
// and tolerated.
func (g *Gauge) watchConfig() *fsnotify.Watcher {
	dir := g.cfgDir
	if dir == "" {
		var err error
		dir, err = config.Dir()
		if err != nil {
			log.WarningLog.Printf("config watch disabled: %v", err)
			return nil
		}
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.WarningLog.Printf("config watch disabled: %v", err)
		return nil
	}
	if err := watcher.Add(dir); err != nil {
		log.WarningLog.Printf("config watch disabled: %v", err)
		_ = watcher.Close()
		return nil
	}
	return watcher
}

// pollConfig drains pending watcher events without blocking and reloads the
// tunable intervals when config.json was rewritten.
func (g *Gauge) pollConfig(watcher *fsnotify.Watcher) {
	if watcher == nil {
		return
	}
	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != config.ConfigFileName {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			cfg, err := config.Load(g.cfgDir)
			if err != nil {
				log.WarningLog.Printf("config reload: %v", err)
				continue
			}
			g.mu.Lock()
			g.cfg.PollIntervalMS = cfg.PollIntervalMS
			g.cfg.MeasureIntervalMS = cfg.MeasureIntervalMS
			g.cfg.EchoOn = cfg.EchoOn
			g.mu.Unlock()
			log.InfoLog.Printf("config reloaded")
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.WarningLog.Printf("config watch: %v", err)
		default:
			return
		}
	}
}
