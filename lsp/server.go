// Package lsp serves decompilation to editors as language server
// workspace commands.
package lsp

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/dhamidi/jbcm/cache"
	"github.com/dhamidi/jbcm/classfile"
	"github.com/dhamidi/jbcm/config"
	"github.com/dhamidi/jbcm/export"
	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"
)

const lsName = "jbcm"

const (
	// CommandDecompile takes a class file path or file URI and returns the
	// decompiled source.
	CommandDecompile = "jbcm.decompile"
	// CommandFlow returns the flow report of a class file.
	CommandFlow = "jbcm.flow"
)

var log = commonlog.GetLogger("jbcm.lsp")

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrBadArguments   = errors.New("bad command arguments")
)

type Server struct {
	cfg     *config.Config
	handler protocol.Handler
	server  *server.Server
	version string

	store *cache.Store
	// cachePath is where store was opened, empty without a store.
	cachePath string
}

// NewServer creates a server using cfg. store may be nil to disable
// caching.
func NewServer(version string, cfg *config.Config, store *cache.Store) *Server {
	s := &Server{cfg: cfg, store: store, version: version}
	if store != nil {
		s.cachePath = cfg.CachePath()
	}

	s.handler = protocol.Handler{
		Initialize:              s.initialize,
		Initialized:             s.initialized,
		Shutdown:                s.shutdown,
		SetTrace:                s.setTrace,
		WorkspaceExecuteCommand: s.workspaceExecuteCommand,
	}
	s.server = server.NewServer(&s.handler, lsName, false)
	return s
}

func (s *Server) RunStdio() error {
	return s.server.RunStdio()
}

func (s *Server) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	rootDir := ""
	if params.RootPath != nil && *params.RootPath != "" {
		rootDir = *params.RootPath
	} else if params.RootURI != nil && *params.RootURI != "" {
		if path, err := uriToPath(*params.RootURI); err == nil {
			rootDir = path
		}
	}
	if rootDir != "" {
		cfg, err := config.FindAndLoad(rootDir)
		if err != nil {
			log.Warningf("loading configuration from %s: %v", rootDir, err)
		} else if cfg.Dir != "" {
			if err := s.useConfig(cfg); err != nil {
				log.Warningf("opening cache for %s: %v", rootDir, err)
			}
		}
	}

	capabilities := s.handler.CreateServerCapabilities()
	capabilities.ExecuteCommandProvider = &protocol.ExecuteCommandOptions{
		Commands: []string{CommandDecompile, CommandFlow},
	}

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lsName,
			Version: &s.version,
		},
	}, nil
}

// useConfig switches to cfg, reopening the cache when its location
// changed. On failure the server keeps running without a cache.
func (s *Server) useConfig(cfg *config.Config) error {
	s.cfg = cfg
	path := cfg.CachePath()
	if path == s.cachePath {
		return nil
	}
	if err := s.store.Close(); err != nil {
		log.Warningf("closing cache %s: %v", s.cachePath, err)
	}
	s.store, s.cachePath = nil, ""
	if path == "" {
		return nil
	}
	store, err := cache.Open(path)
	if err != nil {
		return err
	}
	s.store, s.cachePath = store, path
	return nil
}

func (s *Server) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *Server) shutdown(ctx *glsp.Context) error {
	return s.store.Close()
}

func (s *Server) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)
	return nil
}

func (s *Server) workspaceExecuteCommand(ctx *glsp.Context, params *protocol.ExecuteCommandParams) (any, error) {
	return s.Execute(context.Background(), params.Command, params.Arguments)
}

// Execute runs a workspace command. Every command takes the class file as
// its single argument.
func (s *Server) Execute(ctx context.Context, command string, args []any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("%w: %s takes one class file, got %d arguments", ErrBadArguments, command, len(args))
	}
	arg, ok := args[0].(string)
	if !ok {
		return nil, fmt.Errorf("%w: %s wants a string, got %T", ErrBadArguments, command, args[0])
	}
	path, err := uriToPath(arg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadArguments, err)
	}

	switch command {
	case CommandDecompile:
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return s.store.Decompile(ctx, s.cfg.Options(), data)
	case CommandFlow:
		cf, err := classfile.ParseFile(path)
		if err != nil {
			return nil, err
		}
		return export.Build(cf), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, command)
}

func uriToPath(uri string) (string, error) {
	if strings.HasPrefix(uri, "file://") {
		parsed, err := url.Parse(uri)
		if err != nil {
			return "", err
		}
		return filepath.Clean(parsed.Path), nil
	}
	return uri, nil
}
