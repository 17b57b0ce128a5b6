package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures the logger.
type Options struct {
	Level string
	// File enables a rotating log file. Console output is kept.
	File  string
	Quiet bool // discard console output
}

// New returns a new well configured logger.
func New(opts Options) (*logrus.Logger, error) {
	level := logrus.InfoLevel
	if opts.Level != "" {
		var err error
		level, err = logrus.ParseLevel(opts.Level)
		if err != nil {
			return nil, errors.Wrap(err, "invalid log level")
		}
	}

	formatter := new(logFormatter)

	l := logrus.New()
	l.SetLevel(level)
	l.SetFormatter(formatter)
	l.SetOutput(os.Stderr)
	if opts.Quiet {
		l.SetOutput(io.Discard)
	}

	if opts.File != "" {
		l.Hooks.Add(&fileHook{
			rotate: &lumberjack.Logger{
				Filename:   opts.File,
				MaxSize:    20, // megabytes
				MaxBackups: 2,
				MaxAge:     10, //days
			},
			formatter: formatter,
		})
	}

	return l, nil
}

////////////////////
//                //
// File hook      //
//                //
////////////////////

type fileHook struct {
	sync.Mutex
	rotate    io.Writer
	formatter logrus.Formatter
}

// Fire writes the entry to the rotated file.
func (hook *fileHook) Fire(entry *logrus.Entry) error {
	hook.Lock()
	defer hook.Unlock()

	msg, err := hook.formatter.Format(entry)
	if err != nil {
		log.Println("failed to generate string for entry:", err)
		return err
	}

	_, err = hook.rotate.Write(msg)
	return err
}

// Levels returns configured log levels.
func (hook *fileHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

////////////////////
//                //
// Log formatter  //
//                //
////////////////////

type logFormatter struct{}

// Format implements Logrus formatter.
func (f *logFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	fields := ""
	if len(entry.Data) > 0 {
		fs := []string{}
		for k, v := range entry.Data {
			fs = append(fs, fmt.Sprintf("%s=%v", k, v))
		}
		sort.Strings(fs)
		fields = fmt.Sprintf(" (%s)", strings.Join(fs, ", "))
	}

	t := entry.Time
	if t.IsZero() {
		t = time.Now()
	}

	data := fmt.Sprintf("[%s] %+5s: %s%s\n",
		t.Format(time.RFC3339),
		strings.ToUpper(entry.Level.String()),
		entry.Message,
		fields,
	)
	return []byte(data), nil
}
