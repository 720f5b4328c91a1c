package recorder

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/h2labs/hevsup/internal/domain"
	"github.com/h2labs/hevsup/internal/ports"
)

// schemaVersion tags every trajectory file header. Bump it whenever a
// RecordLine field changes meaning.
const schemaVersion = 1

// fileHeader is the first record of every trajectory file.
type fileHeader struct {
	Schema    int    `json:"schema"`
	RunID     string `json:"run_id"`
	CreatedMs int64  `json:"created_ms"`
}

var csvColumns = []string{
	"tick", "time_ms", "state_version", "seq",
	"soc", "voltage_v", "current_a", "temp_c", "h2_level",
	"fc_power_w", "load_power_w", "driver_demand", "motor_rpm",
	"soc_trend", "load_trend",
	"baseline", "adjustment", "command", "sent", "health", "faults",
}

// fileWriter owns the current trajectory file. Only the writer goroutine and
// the constructor touch it.
type fileWriter struct {
	cfg    Config
	logger ports.Logger

	runID      string
	startStamp string
	fileIndex  int

	f       *os.File
	bw      *bufio.Writer
	csvw    *csv.Writer
	records int
}

func newFileWriter(cfg Config, logger ports.Logger) *fileWriter {
	return &fileWriter{
		cfg:        cfg,
		logger:     logger,
		runID:      uuid.NewString(),
		startStamp: time.Now().Format("20060102T150405"),
	}
}

func (w *fileWriter) ext() string {
	if w.cfg.Format == FormatCSV {
		return "csv"
	}
	return "jsonl"
}

func (w *fileWriter) path() string {
	name := fmt.Sprintf("trajectory_%s_%03d.%s", w.startStamp, w.fileIndex, w.ext())
	return filepath.Join(w.cfg.Dir, name)
}

// open creates the next trajectory file and writes its header. Name
// collisions with leftover files bump the rotation index.
func (w *fileWriter) open() error {
	if err := os.MkdirAll(w.cfg.Dir, 0o700); err != nil {
		return err
	}

	var f *os.File
	for {
		var err error
		f, err = os.OpenFile(w.path(), os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o600)
		if err == nil {
			break
		}
		if !os.IsExist(err) {
			return err
		}
		w.fileIndex++
	}
	w.f = f
	w.bw = bufio.NewWriterSize(f, 64*1024)
	w.records = 0

	hdr := fileHeader{
		Schema:    schemaVersion,
		RunID:     w.runID,
		CreatedMs: time.Now().UnixMilli(),
	}
	switch w.cfg.Format {
	case FormatCSV:
		fmt.Fprintf(w.bw, "# hevsup trajectory schema=%d run=%s\n", hdr.Schema, hdr.RunID)
		w.csvw = csv.NewWriter(w.bw)
		if err := w.csvw.Write(csvColumns); err != nil {
			return err
		}
		w.csvw.Flush()
	default:
		b, err := json.Marshal(hdr)
		if err != nil {
			return err
		}
		w.bw.Write(b)
		w.bw.WriteByte('\n')
	}

	w.logger.Info("trajectory file opened",
		ports.String("path", w.path()),
		ports.String("format", w.cfg.Format),
		ports.String("run_id", w.runID),
	)
	return w.bw.Flush()
}

// write appends one record, opening the next file after a rotation.
func (w *fileWriter) write(rec domain.DecisionRecord) error {
	if w.f == nil {
		if err := w.open(); err != nil {
			return err
		}
	}

	line := rec.ToLine()
	var err error
	switch w.cfg.Format {
	case FormatCSV:
		err = w.writeCSV(line)
	default:
		err = w.writeJSONL(line)
	}
	if err != nil {
		return err
	}

	w.records++
	if w.records >= w.cfg.MaxRecordsPerFile {
		return w.rotate()
	}
	return nil
}

func (w *fileWriter) writeJSONL(line domain.RecordLine) error {
	b, err := json.Marshal(line)
	if err != nil {
		return err
	}
	if _, err := w.bw.Write(b); err != nil {
		return err
	}
	if err := w.bw.WriteByte('\n'); err != nil {
		return err
	}
	return w.bw.Flush()
}

func (w *fileWriter) writeCSV(line domain.RecordLine) error {
	if err := w.csvw.Write(csvRow(line)); err != nil {
		return err
	}
	w.csvw.Flush()
	if err := w.csvw.Error(); err != nil {
		return err
	}
	return w.bw.Flush()
}

// rotate closes the current file; the next write opens the successor.
func (w *fileWriter) rotate() error {
	err := w.close()
	w.fileIndex++
	return err
}

func (w *fileWriter) close() error {
	if w.f == nil {
		return nil
	}
	if w.csvw != nil {
		w.csvw.Flush()
	}
	err := w.bw.Flush()
	if cerr := w.f.Close(); err == nil {
		err = cerr
	}
	w.f, w.bw, w.csvw = nil, nil, nil
	return err
}

func csvRow(l domain.RecordLine) []string {
	return []string{
		strconv.FormatUint(l.Tick, 10),
		strconv.FormatInt(l.TimeMs, 10),
		strconv.FormatUint(l.StateVersion, 10),
		strconv.FormatUint(uint64(l.Seq), 10),
		ffmt(l.SOC),
		ffmt(l.Voltage),
		ffmt(l.Current),
		ffmt(l.Temp),
		ffmt(l.H2Level),
		ffmt(l.FCPower),
		ffmt(l.LoadPower),
		ffmt(l.DriverDemand),
		joinRPM(l.MotorRPM),
		ffmt(l.SOCTrend),
		ffmt(l.LoadTrend),
		joinVec(l.Baseline),
		joinVec(l.Adjustment),
		joinVec(l.Command),
		strconv.FormatBool(l.Sent),
		l.Health,
		strings.Join(l.Faults, ";"),
	}
}

func ffmt(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// joinVec packs a vector into one CSV cell, semicolon separated.
func joinVec(v []float64) string {
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = ffmt(x)
	}
	return strings.Join(parts, ";")
}

func joinRPM(v []uint16) string {
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = strconv.FormatUint(uint64(x), 10)
	}
	return strings.Join(parts, ";")
}
