package config

type (
	Cookies struct {
		// ValidationKey is the secret used for signing outbound cookie values
		// and verifying inbound ones. There is no usable default: an empty key
		// with Validation enabled is reported as a configuration error by the
		// first operation needing the key, never silently worked around.
		ValidationKey string `test:"nullable"`
		// Validation enables cookie-value signing and verification.
		Validation bool
	}

	Uploads struct {
		// MaxDepth limits the nesting of bracketed upload field names. A plain
		// field counts as depth 1, album[photos][] as depth 3. Deeper
		// structures are rejected as structurally malformed.
		MaxDepth int
		// Reset clears the worker-wide upload registry at detach. Disabling
		// this leaks file state into subsequent requests sharing the process.
		Reset bool
	}

	Body struct {
		// Parsers maps exact media types to body parsers. The "*" key, when
		// present, catches every unmatched type. Types absent from the map
		// pass through unparsed.
		Parsers map[string]BodyParser `test:"nullable"`
		// Uploads controls the translation of upload parts.
		Uploads Uploads
	}

	Proxy struct {
		// TrustedHosts lists peer addresses, as plain IPs or CIDR blocks,
		// which are allowed to supply the secure headers.
		TrustedHosts []string `test:"nullable"`
		// SecureHeaders are dropped from requests arriving from peers outside
		// TrustedHosts. All other headers always pass through.
		SecureHeaders []string
	}

	TablePrealloc struct {
		Headers, Query, Post, Cookies int
	}

	Request struct {
		// CSRFHeader names the header carrying the CSRF token. It is looked
		// up case-insensitively on the attached message.
		CSRFHeader string
		// Prealloc sizes the per-request tables ahead of time.
		Prealloc TablePrealloc
	}

	Worker struct {
		// RequestScoped lists the components rebuilt for every request.
		// Everything else keeps its instance for the worker's lifetime, so
		// expensive singletons aren't needlessly reconstructed.
		RequestScoped []string
		// MemoryLimit bounds the worker's memory in bytes. Zero means the
		// total memory of the machine.
		MemoryLimit uint64 `test:"nullable"`
		// MemoryThreshold is the fraction of MemoryLimit at which the
		// watchdog starts signaling that the worker should be recycled.
		MemoryThreshold float64
		// FlushLogs drains buffered log entries at detach.
		FlushLogs bool
	}

	Emitter struct {
		// BufferSize is the chunk size used for streamed bodies. Values <= 0
		// switch the emitter to unbuffered mode, writing the whole body at
		// once.
		BufferSize int
	}
)

// Config holds the settings consumed across the bridge: cookie validation,
// body parsing, proxy trust, per-request tables, the worker lifecycle and
// the emitter.
//
// Always modify defaults returned via Default() instead of initializing the
// struct manually, as zero values of some fields are not usable.
type Config struct {
	Cookies Cookies
	Body    Body
	Proxy   Proxy
	Request Request
	Worker  Worker
	Emitter Emitter
}

// Default returns the default config. Cookie validation is enabled but
// carries no key: set one or disable validation before emitting cookies.
func Default() *Config {
	return &Config{
		Cookies: Cookies{
			ValidationKey: "",
			Validation:    true,
		},
		Body: Body{
			Parsers: nil, // parsing is opt-in; unregistered types pass through raw
			Uploads: Uploads{
				MaxDepth: 5, // album[photos][] is 3; anything deeper is usually an attack
				Reset:    true,
			},
		},
		Proxy: Proxy{
			TrustedHosts: nil, // trust nobody until told otherwise
			SecureHeaders: []string{
				"X-Forwarded-For",
				"X-Forwarded-Host",
				"X-Forwarded-Proto",
				"X-Forwarded-Port",
				"Front-End-Https",
				"X-Rewrite-Url",
			},
		},
		Request: Request{
			CSRFHeader: "X-CSRF-Token",
			Prealloc: TablePrealloc{
				Headers: 10,
				Query:   8,
				Post:    8,
				Cookies: 5,
			},
		},
		Worker: Worker{
			RequestScoped: []string{
				"request", "response", "errorHandler", "session", "user", "urlManager",
			},
			MemoryLimit:     0,
			MemoryThreshold: 0.9,
			FlushLogs:       true,
		},
		Emitter: Emitter{
			BufferSize: 8 * 1024,
		},
	}
}
