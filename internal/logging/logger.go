// Package logging holds the process logger and its per-component entries.
package logging

import (
	"fmt"
	"io"
	"os"
	"path"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

const (
	DefaultLogLevel    = logrus.InfoLevel
	ComponentFieldName = "comp"
)

// callerCache maps caller PC -> "file:line" to keep formatting cheap.
type callerCache struct {
	mu    sync.Mutex
	files map[uintptr]string
}

func (c *callerCache) prettify(f *runtime.Frame) (function string, file string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	loc, ok := c.files[f.PC]
	if !ok {
		_, filename := path.Split(f.File)
		loc = fmt.Sprintf("%s:%d", filename, f.Line)
		c.files[f.PC] = loc
	}
	return "", loc
}

var cache = &callerCache{files: make(map[uintptr]string)}

// keyOrder places time, level, comp and file first, msg last and everything
// else alphabetically in between. Unlisted keys look up as 0.
var keyOrder = map[string]int{
	logrus.FieldKeyTime:  -4,
	logrus.FieldKeyLevel: -3,
	ComponentFieldName:   -2,
	logrus.FieldKeyFile:  -1,
	logrus.FieldKeyMsg:   1,
}

func sortKeys(keys []string) {
	sort.Slice(keys, func(i, j int) bool {
		oi, oj := keyOrder[keys[i]], keyOrder[keys[j]]
		if oi != 0 || oj != 0 {
			return oi < oj
		}
		return strings.Compare(keys[i], keys[j]) < 0
	})
}

var TextFormatter = &logrus.TextFormatter{
	DisableColors:    true,
	FullTimestamp:    true,
	CallerPrettyfier: cache.prettify,
	SortingFunc:      sortKeys,
}

var JSONFormatter = &logrus.JSONFormatter{
	CallerPrettyfier: cache.prettify,
}

// Log is the root logger; components derive from it via NewCompLogger.
var Log = &logrus.Logger{
	ReportCaller: true,
	Out:          os.Stderr,
	Formatter:    TextFormatter,
	Hooks:        make(logrus.LevelHooks),
	Level:        DefaultLogLevel,
}

// NewCompLogger returns an entry tagged with the component name
func NewCompLogger(comp string) *logrus.Entry {
	return Log.WithField(ComponentFieldName, comp)
}

// LevelNames lists the accepted --log-level values
func LevelNames() []string {
	names := make([]string, len(logrus.AllLevels))
	for i, level := range logrus.AllLevels {
		names[i] = level.String()
	}
	return names
}

// Setup applies level and format to the root logger
func Setup(level string, useJSON bool) error {
	if level != "" {
		lvl, err := logrus.ParseLevel(level)
		if err != nil {
			return fmt.Errorf("invalid log level %q (valid: %s): %w",
				level, strings.Join(LevelNames(), ", "), err)
		}
		Log.SetLevel(lvl)
	}
	if useJSON {
		Log.SetFormatter(JSONFormatter)
	} else {
		Log.SetFormatter(TextFormatter)
	}
	return nil
}

// SetOutput redirects the root logger, mainly for tests
func SetOutput(w io.Writer) {
	Log.SetOutput(w)
}
