/* print-srv - IPP print server
 *
 * Copyright (C) 2020 and up by Alexander Pevzner (pzz@apevzner.com)
 * See LICENSE for license terms and conditions
 *
 * Program configuration
 */

package main

import (
	"fmt"
	"math"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/ini.v1"
)

const (
	// ConfFileName defines a name of print-srv configuration file
	ConfFileName = "print-srv.conf"
)

// Configuration represents a program configuration
type Configuration struct {
	ListenAddress     string          // IP address to listen on
	HTTPPort          int             // HTTP port
	LoopbackOnly      bool            // Accept only loopback connections
	DNSSdEnable       bool            // Enable DNS-SD advertising
	ReadTimeout       time.Duration   // HTTP request read timeout
	WriteTimeout      time.Duration   // HTTP response write timeout
	PrinterName       string          // printer-name
	PrinterURI        string          // Primary printer URI, "" if derived
	PrinterLocation   string          // printer-location
	DocumentFormats   []MimeMediaType // document-format-supported
	DocumentFormatDef MimeMediaType   // document-format-default
	AcceptingJobs     bool            // printer-is-accepting-jobs
	LogMain           LogLevel        // Main log LogLevel mask
	LogConsole        LogLevel        // Console LogLevel mask
	ColorConsole      bool            // Enable ANSI colors on console
	LogMaxFileSize    int64           // Maximum log file size
	LogMaxBackupFiles uint            // Count of files preserved during rotation
	SpoolEnable       bool            // Enable job spool
	SpoolPath         string          // Path to the spool database
}

// Conf contains a global instance of program configuration
var Conf = DefaultConfiguration()

// DefaultConfiguration returns the default configuration
func DefaultConfiguration() Configuration {
	def := DefaultPrinterConfig()

	return Configuration{
		ListenAddress:     "0.0.0.0",
		HTTPPort:          3000,
		LoopbackOnly:      false,
		DNSSdEnable:       true,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		PrinterName:       def.Name,
		DocumentFormats:   def.DocumentFormatSupported,
		DocumentFormatDef: def.DocumentFormatDefault,
		AcceptingJobs:     def.AcceptingJobs,
		LogMain:           LogDebug,
		LogConsole:        LogDebug,
		ColorConsole:      true,
		LogMaxFileSize:    256 * 1024,
		LogMaxBackupFiles: 5,
		SpoolEnable:       true,
		SpoolPath:         PathSpoolFile,
	}
}

// ConfLoad loads the program configuration
func ConfLoad() error {
	// Obtain path to executable directory
	exepath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("conf: %s", err)
	}

	exepath = filepath.Dir(exepath)

	// Build list of configuration files
	files := []string{
		filepath.Join(PathConfDir, ConfFileName),
		filepath.Join(exepath, ConfFileName),
	}

	// Load file by file
	for _, file := range files {
		err = confLoadInternal(&Conf, file)
		if err != nil {
			return fmt.Errorf("conf: %w", err)
		}
	}

	return nil
}

// Create "bad value" error
func confBadValue(key *ini.Key, format string, args ...interface{}) error {
	return fmt.Errorf(key.Name()+": "+format, args...)
}

// Load the program configuration -- internal version
//
// Missing file is not an error
func confLoadInternal(conf *Configuration, path string) error {
	inifile, err := ini.LoadSources(ini.LoadOptions{
		Loose:               true,
		IgnoreInlineComment: true,
	}, path)
	if err != nil {
		return err
	}

	// Extract options
	for _, section := range inifile.Sections() {
		for _, key := range section.Keys() {
			err = confLoadKey(conf, section.Name(), key)
			if err != nil {
				return fmt.Errorf("%s: [%s] %s", path, section.Name(), err)
			}
		}
	}

	return confValidate(conf)
}

// confLoadKey loads a single configuration key
func confLoadKey(conf *Configuration, section string, key *ini.Key) error {
	switch section {
	case "network":
		switch key.Name() {
		case "listen-address":
			return confLoadIPAddrKey(&conf.ListenAddress, key)
		case "http-port":
			return confLoadIPPortKey(&conf.HTTPPort, key)
		case "interface":
			return confLoadBinaryKey(&conf.LoopbackOnly, key, "all", "loopback")
		case "dns-sd":
			return confLoadBinaryKey(&conf.DNSSdEnable, key, "disable", "enable")
		case "read-timeout":
			return confLoadDurationKey(&conf.ReadTimeout, key)
		case "write-timeout":
			return confLoadDurationKey(&conf.WriteTimeout, key)
		}

	case "printer":
		switch key.Name() {
		case "name":
			return confLoadStringKey(&conf.PrinterName, key)
		case "uri":
			return confLoadURIKey(&conf.PrinterURI, key)
		case "location":
			conf.PrinterLocation = key.String()
		case "document-formats":
			return confLoadMimeListKey(&conf.DocumentFormats, key)
		case "document-format-default":
			return confLoadMimeKey(&conf.DocumentFormatDef, key)
		case "accepting-jobs":
			return confLoadBinaryKey(&conf.AcceptingJobs, key, "no", "yes")
		}

	case "logging":
		switch key.Name() {
		case "main-log":
			return confLoadLogLevelKey(&conf.LogMain, key)
		case "console-log":
			return confLoadLogLevelKey(&conf.LogConsole, key)
		case "console-color":
			return confLoadBinaryKey(&conf.ColorConsole, key, "disable", "enable")
		case "max-file-size":
			return confLoadSizeKey(&conf.LogMaxFileSize, key)
		case "max-backup-files":
			return confLoadUintKey(&conf.LogMaxBackupFiles, key)
		}

	case "spool":
		switch key.Name() {
		case "enable":
			return confLoadBinaryKey(&conf.SpoolEnable, key, "disable", "enable")
		case "path":
			return confLoadStringKey(&conf.SpoolPath, key)
		}
	}

	return nil
}

// confValidate validates loaded configuration
func confValidate(conf *Configuration) error {
	if conf.PrinterURI != "" {
		u, err := url.Parse(conf.PrinterURI)
		if err != nil || u.Path != IppPath {
			return fmt.Errorf("%w: uri: %q: path must be %s",
				ErrBadConfig, conf.PrinterURI, IppPath)
		}
	}

	for _, f := range conf.DocumentFormats {
		if strings.EqualFold(string(f), string(conf.DocumentFormatDef)) {
			return nil
		}
	}

	return fmt.Errorf("%w: document-format-default: %q must be one of document-formats",
		ErrBadConfig, conf.DocumentFormatDef)
}

// PrimaryURI returns the primary printer URI
//
// If not configured explicitly, it is built from the listen
// address and port. Unspecified listen address is advertised
// as loopback
func (conf *Configuration) PrimaryURI() string {
	if conf.PrinterURI != "" {
		return conf.PrinterURI
	}

	host := conf.ListenAddress
	if ip := net.ParseIP(host); ip == nil || ip.IsUnspecified() {
		host = "127.0.0.1"
	}

	u := url.URL{
		Scheme: "ipp",
		Host:   net.JoinHostPort(host, strconv.Itoa(conf.HTTPPort)),
		Path:   IppPath,
	}

	return u.String()
}

// PrinterConfig builds the printer configuration
func (conf *Configuration) PrinterConfig() PrinterConfig {
	pc := DefaultPrinterConfig()

	pc.Name = conf.PrinterName
	pc.Location = conf.PrinterLocation
	pc.DocumentFormatSupported = append([]MimeMediaType(nil),
		conf.DocumentFormats...)
	pc.DocumentFormatDefault = conf.DocumentFormatDef
	pc.AcceptingJobs = conf.AcceptingJobs

	uri := conf.PrimaryURI()
	security := UriSecurityNone
	if strings.HasPrefix(uri, "ipps:") {
		security = UriSecurityTLS
	}

	pc.URIs = []PrinterURI{
		{
			URI:            uri,
			Authentication: UriAuthNone,
			Security:       security,
		},
	}

	return pc
}

// HTTPAddr returns address for the HTTP listener
func (conf *Configuration) HTTPAddr() string {
	return net.JoinHostPort(conf.ListenAddress, strconv.Itoa(conf.HTTPPort))
}

// Load non-empty string key
func confLoadStringKey(out *string, key *ini.Key) error {
	s := strings.TrimSpace(key.String())
	if s == "" {
		return confBadValue(key, "must not be empty")
	}

	*out = s
	return nil
}

// Load IP address key
func confLoadIPAddrKey(out *string, key *ini.Key) error {
	s := strings.TrimSpace(key.String())
	if net.ParseIP(s) == nil {
		return confBadValue(key, "%q: invalid IP address", s)
	}

	*out = s
	return nil
}

// Load IP port key
func confLoadIPPortKey(out *int, key *ini.Key) error {
	port, err := strconv.Atoi(key.String())
	if err == nil && (port < 1 || port > 65535) {
		err = confBadValue(key, "must be in range 1...65535")
	} else if err != nil {
		err = confBadValue(key, "%q: invalid port", key.String())
	}

	if err != nil {
		return err
	}

	*out = port
	return nil
}

// Load the binary key
func confLoadBinaryKey(out *bool, key *ini.Key, vFalse, vTrue string) error {
	switch key.String() {
	case vFalse:
		*out = false
		return nil
	case vTrue:
		*out = true
		return nil
	default:
		return confBadValue(key, "must be %s or %s", vFalse, vTrue)
	}
}

// Load duration key
func confLoadDurationKey(out *time.Duration, key *ini.Key) error {
	d, err := time.ParseDuration(key.String())
	if err != nil || d < 0 {
		return confBadValue(key, "%q: invalid duration", key.String())
	}

	*out = d
	return nil
}

// Load printer URI key
func confLoadURIKey(out *string, key *ini.Key) error {
	u, err := url.Parse(key.String())
	if err != nil {
		return confBadValue(key, "%s", err)
	}

	switch u.Scheme {
	case "ipp", "ipps":
	default:
		return confBadValue(key, "must be ipp:// or ipps:// URI")
	}

	if u.Host == "" {
		return confBadValue(key, "missing host")
	}

	*out = strings.TrimSuffix(u.String(), "/")
	return nil
}

// Load MIME media type key
func confLoadMimeKey(out *MimeMediaType, key *ini.Key) error {
	s := strings.TrimSpace(key.String())
	if !confValidMime(s) {
		return confBadValue(key, "%q: invalid MIME type", s)
	}

	*out = MimeMediaType(s)
	return nil
}

// Load comma-separated list of MIME media types
func confLoadMimeListKey(out *[]MimeMediaType, key *ini.Key) error {
	var list []MimeMediaType

	for _, s := range key.Strings(",") {
		if !confValidMime(s) {
			return confBadValue(key, "%q: invalid MIME type", s)
		}
		list = append(list, MimeMediaType(s))
	}

	if len(list) == 0 {
		return confBadValue(key, "must not be empty")
	}

	*out = list
	return nil
}

// confValidMime performs basic syntax check of the
// MIME media type: type/subtype with optional parameters
func confValidMime(s string) bool {
	typ := s
	if i := strings.IndexByte(s, ';'); i >= 0 {
		typ = strings.TrimSpace(s[:i])
	}

	slash := strings.IndexByte(typ, '/')
	return slash > 0 && slash < len(typ)-1 &&
		!strings.ContainsAny(typ, " \t,")
}

// Load LogLevel key
func confLoadLogLevelKey(out *LogLevel, key *ini.Key) error {
	var mask LogLevel
	for _, s := range strings.Split(key.String(), ",") {
		s = strings.TrimSpace(s)
		switch s {
		case "":
		case "error":
			mask |= LogError
		case "info":
			mask |= LogInfo | LogError
		case "debug":
			mask |= LogDebug | LogInfo | LogError
		case "trace-ipp":
			mask |= LogTraceIPP | LogDebug | LogInfo | LogError
		case "trace-http":
			mask |= LogTraceHTTP | LogDebug | LogInfo | LogError
		case "all", "trace-all":
			mask |= LogAll
		default:
			return confBadValue(key, "invalid log level %q", s)
		}
	}

	*out = mask
	return nil
}

// Load size key
func confLoadSizeKey(out *int64, key *ini.Key) error {
	units := uint64(1)
	value := key.String()

	if l := len(value); l > 0 {
		switch value[l-1] {
		case 'k', 'K':
			units = 1024
		case 'm', 'M':
			units = 1024 * 1024
		}

		if units != 1 {
			value = value[:l-1]
		}
	}

	sz, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return confBadValue(key, "%q: invalid size", key.String())
	}

	if sz > uint64(math.MaxInt64/units) {
		return confBadValue(key, "size too large")
	}

	*out = int64(sz * units)
	return nil
}

// Load unsigned integer key
func confLoadUintKey(out *uint, key *ini.Key) error {
	num, err := strconv.ParseUint(key.String(), 10, 0)
	if err != nil {
		return confBadValue(key, "%q: invalid number", key.String())
	}

	*out = uint(num)
	return nil
}
