/* print-srv - IPP print server
 *
 * Copyright (C) 2020 and up by Alexander Pevzner (pzz@apevzner.com)
 * See LICENSE for license terms and conditions
 *
 * Logging
 */

package main

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"github.com/OpenPrinting/goipp"
	"github.com/mattn/go-isatty"
)

// LogLevel enumerates possible log levels
type LogLevel int

// LogLevel elements
const (
	LogError LogLevel = 1 << iota
	LogInfo
	LogDebug
	LogTraceIPP
	LogTraceHTTP

	LogAll      = LogError | LogInfo | LogDebug | LogTraceAll
	LogTraceAll = LogTraceIPP | LogTraceHTTP
)

// Adjust LogLevel mask, so more detailed log levels
// imply less detailed
func (levels *LogLevel) Adjust() {
	switch {
	case *levels&LogTraceAll != 0:
		*levels |= LogDebug | LogInfo | LogError
	case *levels&LogDebug != 0:
		*levels |= LogInfo | LogError
	case *levels&LogInfo != 0:
		*levels |= LogError
	}
}

// logMaxBufferedLines limits count of lines, buffered
// until Logger mode is set. Older lines are dropped
const logMaxBufferedLines = 1024

// loggerMode enumerates possible Logger modes
type loggerMode int

const (
	loggerNoMode       loggerMode = iota // Mode not yet set; log is buffered
	loggerDiscard                        // Log goes to nowhere
	loggerConsole                        // Log goes to console
	loggerColorConsole                   // Log goes to console and uses ANSI colors
	loggerFile                           // Log goes to file
)

var (
	// Log is the main logger
	Log = NewLogger()

	// Console is the console logger. Main log is mirrored
	// here in debug mode
	Console = NewLogger().ToConsole()

	// InitLog is used to report initialization errors and
	// output of the command-line tools
	InitLog = NewLogger().ToConsole()

	logMessagePool = sync.Pool{New: func() interface{} { return &LogMessage{} }}
	logBufferPool  = sync.Pool{New: func() interface{} { return &bytes.Buffer{} }}
)

// Logger implements logging facilities
type Logger struct {
	lock       sync.Mutex     // Write lock
	mode       loggerMode     // Logger mode
	levels     LogLevel       // Levels generated by this logger
	ccLoggers  []*Logger      // Loggers to send carbon copy to
	path       string         // Path to log file
	out        io.WriteCloser // Output stream, may be nil
	maxSize    int64          // Max log file size before rotation
	maxBackups uint           // Count of rotated files to keep
	buffered   []logLine      // Lines, buffered before mode is set
}

// logLine represents a single line, saved in the log
// buffer until logger mode is set
type logLine struct {
	level LogLevel // Line level
	text  []byte   // Line text
}

// NewLogger creates new logger. Logger mode is not set,
// so logs written to this logger are buffered until mode
// (and direction) is set
func NewLogger() *Logger {
	l := &Logger{
		mode:       loggerNoMode,
		levels:     LogAll,
		maxSize:    Conf.LogMaxFileSize,
		maxBackups: Conf.LogMaxBackupFiles,
	}

	return l
}

// ToNowhere redirects log to nowhere
func (l *Logger) ToNowhere() *Logger {
	return l.setMode(loggerDiscard, "", nil)
}

// ToConsole redirects log to console
func (l *Logger) ToConsole() *Logger {
	return l.setMode(loggerConsole, "", os.Stdout)
}

// ToColorConsole redirects log to console with ANSI colors.
// If stdout is not a terminal, colors are not used
func (l *Logger) ToColorConsole() *Logger {
	if !isatty.IsTerminal(os.Stdout.Fd()) &&
		!isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return l.ToConsole()
	}
	return l.setMode(loggerColorConsole, "", os.Stdout)
}

// ToFile redirects log to the file
func (l *Logger) ToFile(path string) *Logger {
	return l.setMode(loggerFile, path, nil)
}

// ToMainFile redirects log to the main log file
func (l *Logger) ToMainFile() *Logger {
	return l.ToFile(PathLogFile)
}

// setMode sets Logger mode and output, and flushes
// lines buffered before
func (l *Logger) setMode(mode loggerMode, path string, out io.WriteCloser) *Logger {
	l.lock.Lock()
	l.mode = mode
	l.path = path
	l.out = out
	l.maxSize = Conf.LogMaxFileSize
	l.maxBackups = Conf.LogMaxBackupFiles

	buffered := l.buffered
	l.buffered = nil

	for _, line := range buffered {
		l.writeLine(line.level, line.text)
	}
	l.lock.Unlock()

	return l
}

// SetLevels sets Logger's levels mask
func (l *Logger) SetLevels(levels LogLevel) *Logger {
	levels.Adjust()

	l.lock.Lock()
	l.levels = levels
	l.lock.Unlock()

	return l
}

// Cc adds Logger to send "carbon copy" to
func (l *Logger) Cc(to *Logger) *Logger {
	l.lock.Lock()
	l.ccLoggers = append(l.ccLoggers, to)
	l.lock.Unlock()

	return l
}

// Close the logger
func (l *Logger) Close() {
	l.lock.Lock()
	defer l.lock.Unlock()

	if l.mode == loggerFile && l.out != nil {
		l.out.Close()
		l.out = nil
	}
}

// Begin new log message
func (l *Logger) Begin() *LogMessage {
	msg := logMessagePool.Get().(*LogMessage)
	msg.logger = l
	return msg
}

// Debug writes a LogDebug message
func (l *Logger) Debug(prefix byte, format string, args ...interface{}) {
	l.Begin().Debug(prefix, format, args...).Commit()
}

// Info writes a LogInfo message
func (l *Logger) Info(prefix byte, format string, args ...interface{}) {
	l.Begin().Info(prefix, format, args...).Commit()
}

// Error writes a LogError message
func (l *Logger) Error(prefix byte, format string, args ...interface{}) {
	l.Begin().Error(prefix, format, args...).Commit()
}

// Exit writes a LogError message and terminates the program
func (l *Logger) Exit(prefix byte, format string, args ...interface{}) {
	l.Error(prefix, format, args...)
	os.Exit(1)
}

// Check calls Exit if err is not nil
func (l *Logger) Check(err error) {
	if err != nil {
		l.Exit(0, "%s", err)
	}
}

// Panic writes the panic value and stack trace into the log
func (l *Logger) Panic(v interface{}) {
	l.Begin().
		Error('!', "panic: %v", v).
		Nl(LogError).
		Text(LogError, debug.Stack()).
		Commit()
}

// Dump writes HEX dump with optional title. If title is not "",
// it is formatted, as fmt.Printf does, and prepended to the dump
func (l *Logger) Dump(level LogLevel, data []byte, title string,
	args ...interface{}) {
	l.Begin().Dump(level, data, title, args...).Commit()
}

// LineWriter creates a LineWriter that writes into the log
// with the specified level and prefix
func (l *Logger) LineWriter(level LogLevel, prefix byte) *LineWriter {
	return &LineWriter{
		Func: func(line []byte) {
			l.Begin().addBytes(level, prefix, line).Commit()
		},
	}
}

// IppRequest dumps IPP request into the log
func (l *Logger) IppRequest(level LogLevel, prefix byte, msg *goipp.Message) {
	l.Begin().IppRequest(level, prefix, msg).Commit()
}

// IppResponse dumps IPP response into the log
func (l *Logger) IppResponse(level LogLevel, prefix byte, msg *goipp.Message) {
	l.Begin().IppResponse(level, prefix, msg).Commit()
}

// HTTPRequest dumps HTTP request headers into the log
func (l *Logger) HTTPRequest(level LogLevel, prefix byte,
	session int32, rq *http.Request) {
	l.Begin().HTTPRequest(level, prefix, session, rq).Commit()
}

// writeLine writes a single line into the log. Logger
// must be locked by caller
func (l *Logger) writeLine(level LogLevel, line []byte) {
	switch l.mode {
	case loggerNoMode:
		if len(l.buffered) >= logMaxBufferedLines {
			copy(l.buffered, l.buffered[1:])
			l.buffered = l.buffered[:len(l.buffered)-1]
		}
		l.buffered = append(l.buffered,
			logLine{level, append([]byte(nil), line...)})
		return

	case loggerDiscard:
		return

	case loggerFile:
		if l.out == nil {
			os.MkdirAll(filepath.Dir(l.path), 0755)
			file, err := os.OpenFile(l.path,
				os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0644)
			if err != nil {
				return
			}
			l.out = file
		}

		l.out.Write(l.fmtTime())
		l.out.Write(line)

	case loggerConsole:
		l.out.Write(line)

	case loggerColorConsole:
		logColorConsoleWrite(l.out, level, line)
	}
}

// fmtTime formats the time prefix for the file log
func (l *Logger) fmtTime() []byte {
	now := time.Now()
	year, month, day := now.Date()
	hour, min, sec := now.Clock()

	return []byte(fmt.Sprintf("%2.2d-%2.2d-%4.4d %2.2d:%2.2d:%2.2d: ",
		day, month, year, hour, min, sec))
}

// rotate rotates the log file, if it becomes too large.
// Logger must be locked by caller
func (l *Logger) rotate() {
	file, ok := l.out.(*os.File)
	if l.mode != loggerFile || !ok {
		return
	}

	// Do we need to rotate?
	stat, err := file.Stat()
	if err != nil || stat.Size() <= l.maxSize {
		return
	}

	// Perform rotation
	if l.maxBackups == 0 {
		file.Truncate(0)
		return
	}

	prevpath := ""
	for i := int(l.maxBackups); i >= 0; i-- {
		nextpath := l.path
		if i > 0 {
			nextpath += fmt.Sprintf(".%d.gz", i-1)
		}

		switch i {
		case int(l.maxBackups):
			os.Remove(nextpath)
		case 0:
			err := logGzip(nextpath, prevpath)
			if err == nil {
				file.Truncate(0)
			}
		default:
			os.Rename(nextpath, prevpath)
		}

		prevpath = nextpath
	}
}

// logGzip compresses the log file
func logGzip(ipath, opath string) error {
	// Open input file
	ifile, err := os.Open(ipath)
	if err != nil {
		return err
	}

	defer ifile.Close()

	// Open output file
	ofile, err := os.OpenFile(opath, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0644)
	if err != nil {
		return err
	}

	// gzip ifile->ofile
	w := gzip.NewWriter(ofile)
	_, err = io.Copy(w, ifile)
	err2 := w.Close()
	err3 := ofile.Close()

	switch {
	case err == nil && err2 != nil:
		err = err2
	case err == nil && err3 != nil:
		err = err3
	}

	// Cleanup and exit
	if err != nil {
		os.Remove(opath)
	}

	return err
}

// logColorConsoleWrite writes a colorized line to console
func logColorConsoleWrite(out io.Writer, level LogLevel, line []byte) {
	var beg, end string

	switch {
	case (level & LogError) != 0:
		beg, end = "\033[31;1m", "\033[0m" // Red
	case (level & LogInfo) != 0:
		beg, end = "\033[32;1m", "\033[0m" // Green
	case (level & LogDebug) != 0:
		beg, end = "\033[37;1m", "\033[0m" // White
	case (level & LogTraceAll) != 0:
		beg, end = "\033[37m", "\033[0m" // Gray
	}

	out.Write([]byte(beg))
	out.Write(line)
	out.Write([]byte(end))
}

// LogMessage represents a single (possible multi line) log
// message, which will appear in the output log atomically,
// and will not be interrupted in the middle by other log activity
type LogMessage struct {
	logger *Logger   // Underlying logger
	lines  []logLine // One line per entry
}

// add formats a next line of log message, with level and prefix char
func (msg *LogMessage) add(level LogLevel, prefix byte,
	format string, args ...interface{}) *LogMessage {

	return msg.addBytes(level, prefix, []byte(fmt.Sprintf(format, args...)))
}

// addBytes adds a next line of log message
func (msg *LogMessage) addBytes(level LogLevel, prefix byte,
	line []byte) *LogMessage {

	text := make([]byte, 0, len(line)+3)
	if prefix != 0 {
		text = append(text, prefix, ' ')
	}
	text = append(text, line...)
	text = append(text, '\n')

	msg.lines = append(msg.lines, logLine{level, text})
	return msg
}

// Debug appends a LogDebug line to the message
func (msg *LogMessage) Debug(prefix byte, format string, args ...interface{}) *LogMessage {
	return msg.add(LogDebug, prefix, format, args...)
}

// Info appends a LogInfo line to the message
func (msg *LogMessage) Info(prefix byte, format string, args ...interface{}) *LogMessage {
	return msg.add(LogInfo, prefix, format, args...)
}

// Error appends a LogError line to the message
func (msg *LogMessage) Error(prefix byte, format string, args ...interface{}) *LogMessage {
	return msg.add(LogError, prefix, format, args...)
}

// Nl appends an empty line to the message
func (msg *LogMessage) Nl(level LogLevel) *LogMessage {
	return msg.addBytes(level, 0, nil)
}

// Text appends text to the message. Text is split into lines
func (msg *LogMessage) Text(level LogLevel, text []byte) *LogMessage {
	text = bytes.TrimRight(text, "\n")
	for _, line := range bytes.Split(text, []byte("\n")) {
		msg.addBytes(level, ' ', line)
	}
	return msg
}

// Dump appends HEX dump with optional title. If title is not "",
// it is formatted, as fmt.Printf does, and prepended to the dump
func (msg *LogMessage) Dump(level LogLevel, data []byte, title string,
	args ...interface{}) *LogMessage {

	if title != "" {
		msg.add(level, ' ', title, args...)
	}

	hex := logBufAlloc()
	chr := logBufAlloc()

	defer logBufFree(hex)
	defer logBufFree(chr)

	off := 0

	for len(data) > 0 {
		hex.Reset()
		chr.Reset()

		sz := len(data)
		if sz > 16 {
			sz = 16
		}

		i := 0
		for ; i < sz; i++ {
			c := data[i]
			fmt.Fprintf(hex, "%2.2x", data[i])
			if i%4 == 3 {
				hex.Write([]byte(":"))
			} else {
				hex.Write([]byte(" "))
			}

			if 0x20 <= c && c < 0x80 {
				chr.WriteByte(c)
			} else {
				chr.WriteByte('.')
			}
		}

		for ; i < 16; i++ {
			hex.WriteString("   ")
		}

		msg.add(level, ' ', "%4.4x: %s %s", off, hex, chr)

		off += sz
		data = data[sz:]
	}

	return msg
}

// IppRequest appends formatted IPP request to the message
func (msg *LogMessage) IppRequest(level LogLevel, prefix byte,
	m *goipp.Message) *LogMessage {

	f := goipp.NewFormatter()
	f.FmtRequest(m)
	return msg.ippFormatted(level, prefix, f)
}

// IppResponse appends formatted IPP response to the message
func (msg *LogMessage) IppResponse(level LogLevel, prefix byte,
	m *goipp.Message) *LogMessage {

	f := goipp.NewFormatter()
	f.FmtResponse(m)
	return msg.ippFormatted(level, prefix, f)
}

// ippFormatted appends goipp.Formatter output to the message
func (msg *LogMessage) ippFormatted(level LogLevel, prefix byte,
	f *goipp.Formatter) *LogMessage {

	text := bytes.TrimRight(f.Bytes(), "\n")
	for _, line := range bytes.Split(text, []byte("\n")) {
		msg.addBytes(level, prefix, line)
	}

	return msg.Nl(level)
}

// HTTPRequest appends HTTP request line and headers to the message
func (msg *LogMessage) HTTPRequest(level LogLevel, prefix byte,
	session int32, rq *http.Request) *LogMessage {

	msg.add(level, prefix, "HTTP[%d]: %s %s %s",
		session, rq.Method, rq.URL, rq.Proto)
	return msg.httpHdr(level, prefix, session, rq.Header)
}

// HTTPResponse appends HTTP status line and headers to the message
func (msg *LogMessage) HTTPResponse(level LogLevel, prefix byte,
	session int32, status int, hdr http.Header) *LogMessage {

	msg.add(level, prefix, "HTTP[%d]: HTTP/1.1 %d %s",
		session, status, http.StatusText(status))
	return msg.httpHdr(level, prefix, session, hdr)
}

// httpHdr appends HTTP header to the message, sorted by key
func (msg *LogMessage) httpHdr(level LogLevel, prefix byte,
	session int32, hdr http.Header) *LogMessage {

	keys := make([]string, 0, len(hdr))
	for k := range hdr {
		keys = append(keys, k)
	}

	sort.Strings(keys)
	for _, k := range keys {
		msg.add(level, prefix, "HTTP[%d]: %s: %s", session, k, hdr.Get(k))
	}

	return msg.Nl(level)
}

// Commit message to the log
func (msg *LogMessage) Commit() {
	// Don't forget to free the message
	defer msg.free()

	// Ignore empty messages
	if len(msg.lines) == 0 {
		return
	}

	msg.logger.commit(msg.lines)
}

// commit writes message lines into the logger and
// its carbon copy loggers
func (l *Logger) commit(lines []logLine) {
	l.lock.Lock()

	if l.mode == loggerFile {
		l.rotate()
	}

	for _, line := range lines {
		if line.level&l.levels != 0 {
			l.writeLine(line.level, line.text)
		}
	}

	cc := l.ccLoggers
	l.lock.Unlock()

	for _, to := range cc {
		to.commit(lines)
	}
}

// Reject the message
func (msg *LogMessage) Reject() {
	msg.free()
}

// Return message to the logMessagePool
func (msg *LogMessage) free() {
	// Reset the message and put it to the pool
	if len(msg.lines) < 16 {
		msg.lines = msg.lines[:0] // Keep memory, reset content
	} else {
		msg.lines = nil
	}

	msg.logger = nil

	logMessagePool.Put(msg)
}

// Allocate a buffer
func logBufAlloc() *bytes.Buffer {
	buf := logBufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

// Free a buffer
func logBufFree(buf *bytes.Buffer) {
	if buf.Cap() <= 256 {
		buf.Reset()
		logBufferPool.Put(buf)
	}
}
