package gauge

import (
	"fmt"
	"strings"
	"time"

	"sagitta/cmdproc"
	"sagitta/log"
)

// session binds the gauge's command handlers to one console, so output from
// a command lands on the console that invoked it.
type session struct {
	g  *Gauge
	io cmdproc.IO
}

func (s *session) about(args string) cmdproc.RunResult {
	s.io.WriteLine("SAGITTA pressure/temperature gauge")
	return cmdproc.RunOK
}

// filename reports the active log name, or sets it when an argument is
// given. The name persists in the state file across restarts.
func (s *session) filename(args string) cmdproc.RunResult {
	g := s.g
	g.mu.Lock()
	if args != "" {
		g.state.Filename = args
		if err := g.state.Save(); err != nil {
			log.ErrorLog.Printf("persist filename: %v", err)
			g.mu.Unlock()
			s.io.WriteLine("\r\nProblem with storage")
			return cmdproc.RunOK
		}
		g.mu.Unlock()
		s.io.WriteLine("\r\nsuccess")
		return cmdproc.RunOK
	}
	name := g.state.Filename
	g.mu.Unlock()
	s.io.WriteLine(fmt.Sprintf("\r\n%s", name))
	s.io.WriteLine("success")
	return cmdproc.RunOK
}

// get streams a log's records between the firmware's transfer markers so a
// collecting program on the other end can cut the file out of the byte
// stream.
func (s *session) get(args string) cmdproc.RunResult {
	g := s.g
	name := args
	if name == "" {
		g.mu.Lock()
		name = g.state.Filename
		g.mu.Unlock()
	}

	samples, err := g.store.Samples(name)
	if err != nil {
		log.WarningLog.Printf("get %q: %v", name, err)
		s.io.WriteLine("\r\nProblem with storage")
		return cmdproc.RunOK
	}
	s.io.WriteLine("\r\n_start_file")
	for _, sample := range samples {
		s.io.WriteLine(sample.Record())
	}
	s.io.WriteLine("_end_file")
	return cmdproc.RunOK
}

// ls lists the logs held in the sample store.
func (s *session) ls(args string) cmdproc.RunResult {
	infos, err := s.g.store.List()
	if err != nil {
		log.WarningLog.Printf("ls: %v", err)
		s.io.WriteLine("\r\nProblem with storage")
		return cmdproc.RunOK
	}
	s.io.WriteLine("")
	for _, info := range infos {
		s.io.WriteLine(fmt.Sprintf(" %s (%d records)", info.Name, info.Records))
	}
	return cmdproc.RunOK
}

// check exercises each subsystem once: pressure reading, a temperature
// conversion and a storage self-test. Refused while logging is active,
// matching the firmware.
func (s *session) check(args string) cmdproc.RunResult {
	g := s.g
	g.mu.Lock()
	busy := g.mode != ModeIdle
	g.mu.Unlock()
	if busy {
		s.io.WriteLine("\r\nbusy logging, stop with 'Mode 0' first")
		return cmdproc.RunOK
	}

	s.io.WriteLine(fmt.Sprintf("\r\nPressure sensor: %.3f", g.pressure.Read()))

	if len(g.probes) > 0 {
		probe := g.probes[0]
		probe.Convert()
		if temp, err := probe.Temperature(); err == nil {
			s.io.WriteLine(fmt.Sprintf("Temp sensor = %3.3f", temp))
		} else {
			s.io.WriteLine("Temp sensor not present")
		}
	} else {
		s.io.WriteLine("Temp sensor not present")
	}

	if err := g.store.SelfTest(); err != nil {
		log.ErrorLog.Printf("storage self-test: %v", err)
		s.io.WriteLine("storage check FAILED!")
	} else {
		s.io.WriteLine("storage check OK")
	}
	return cmdproc.RunOK
}

// mode starts or stops logging. '1' arms the measurement clock; '0' stops
// it. The selected mode persists in the state file.
func (s *session) mode(args string) cmdproc.RunResult {
	g := s.g
	switch {
	case strings.ContainsRune(args, '0'):
		g.mu.Lock()
		g.mode = ModeIdle
		g.state.Mode = ModeIdle
		g.mu.Unlock()
		s.io.WriteLine("\r\ndeactivated")
	case strings.ContainsRune(args, '1'):
		g.mu.Lock()
		g.mode = ModeLogging
		g.state.Mode = ModeLogging
		g.epoch = time.Now()
		g.lastMeasure = time.Time{}
		g.mu.Unlock()
		s.io.WriteLine("\r\nactivated")
	default:
		s.io.WriteLine("\r\nbad mode")
		return cmdproc.RunOK
	}
	if err := g.state.Save(); err != nil {
		log.WarningLog.Printf("persist mode: %v", err)
	}
	return cmdproc.RunOK
}
