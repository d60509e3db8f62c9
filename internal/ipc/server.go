package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sort"
	"sync"
	"time"

	"amuza/internal/calibration"
	"amuza/internal/daemon"
	"amuza/internal/logging"
	"amuza/internal/logs"
	"amuza/internal/runs"
)

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	daemon    *daemon.Daemon
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, logger: logger, ctx: ctx}
	if err := rpcServer.RegisterName("Amuza", srv); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		daemon:    d,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				s.logger.Warn("accept failed", logging.Error(err))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err))
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) log() *slog.Logger {
	if s.logger == nil {
		return logging.NewNop()
	}
	return s.logger.With(logging.String(logging.FieldComponent, "ipc"))
}

func convertRun(run runs.Run) Run {
	return Run{
		ID:              run.ID,
		Kind:            string(run.Kind),
		Wells:           run.Wells,
		SamplingSeconds: run.SamplingSeconds,
		BufferSeconds:   run.BufferSeconds,
		Status:          string(run.Status),
		ErrorMessage:    run.ErrorMessage,
		CreatedAt:       run.CreatedAt,
		StartedAt:       run.StartedAt,
		FinishedAt:      run.FinishedAt,
	}
}

func convertProfiles(profiles map[calibration.Metabolite]calibration.Profile) []Profile {
	out := make([]Profile, 0, len(profiles))
	for m, p := range profiles {
		out = append(out, Profile{Metabolite: string(m), Gain: p.Gain, Offset: p.Offset})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Metabolite < out[j].Metabolite })
	return out
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status(s.ctx)
	resp.Running = status.Running
	resp.PID = status.PID
	resp.Phase = status.Phase
	resp.Well = status.Well
	resp.Position = status.Position
	resp.Total = status.Total
	resp.Tray = status.Tray
	resp.Profiles = convertProfiles(status.Profiles)
	resp.RunsDBPath = status.RunsDBPath
	resp.LockPath = status.LockPath
	resp.SessionPath = status.SessionPath
	resp.Dropped = status.Dropped
	resp.RunsTotal = status.Runs.Total
	resp.RunsCompleted = status.Runs.Completed
	resp.RunsFailed = status.Runs.Failed
	resp.RunsStopped = status.Runs.Stopped
	if status.ActiveRun != nil {
		run := convertRun(*status.ActiveRun)
		resp.ActiveRun = &run
	}
	return nil
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	s.log().Debug("daemon stop requested")
	s.daemon.Stop()
	resp.Stopped = true
	s.log().Info("daemon stopped via IPC",
		logging.String(logging.FieldEventType, "daemon_stop"))
	return nil
}

func (s *service) Eject(_ TrayRequest, resp *TrayResponse) error {
	if err := s.daemon.Eject(s.ctx); err != nil {
		return err
	}
	resp.Phase = s.daemon.Status(s.ctx).Phase
	return nil
}

func (s *service) Insert(_ TrayRequest, resp *TrayResponse) error {
	if err := s.daemon.Insert(s.ctx); err != nil {
		return err
	}
	resp.Phase = s.daemon.Status(s.ctx).Phase
	return nil
}

func (s *service) RunPlate(req RunRequest, resp *RunResponse) error {
	id, err := s.daemon.RunPlate(s.ctx, req.Selection, req.SamplingSeconds, req.BufferSeconds)
	if err != nil {
		return err
	}
	resp.RunID = id
	return nil
}

func (s *service) Move(req RunRequest, resp *RunResponse) error {
	id, err := s.daemon.Move(s.ctx, req.Selection, req.SamplingSeconds, req.BufferSeconds)
	if err != nil {
		return err
	}
	resp.RunID = id
	return nil
}

func (s *service) StopRun(_ StopRunRequest, resp *StopRunResponse) error {
	if err := s.daemon.StopRun(s.ctx); err != nil {
		return err
	}
	resp.Stopped = true
	return nil
}

func (s *service) Calibrate(req CalibrateRequest, resp *CalibrateResponse) error {
	profile, err := s.daemon.Calibrate(req.Metabolite)
	if err != nil {
		return err
	}
	resp.Profile = Profile{Metabolite: req.Metabolite, Gain: profile.Gain, Offset: profile.Offset}
	return nil
}

func (s *service) SetExpected(req SetExpectedRequest, _ *SetExpectedResponse) error {
	return s.daemon.SetExpected(req.Metabolite, req.Concentration)
}

func (s *service) SetGain(req SetGainRequest, _ *SetGainResponse) error {
	return s.daemon.SetGain(req.Metabolite, req.Gain)
}

func (s *service) Temperature(req TemperatureRequest, _ *TemperatureResponse) error {
	return s.daemon.AdjustTemperature(s.ctx, req.Celsius)
}

func (s *service) Needle(req NeedleRequest, _ *NeedleResponse) error {
	return s.daemon.Needle(s.ctx, req.Up)
}

func (s *service) Sample(_ SampleRequest, resp *SampleResponse) error {
	sample, ok := s.daemon.LatestSample()
	if !ok {
		return nil
	}
	metabolites := make(map[string]float64, len(sample.Metabolites))
	for m, v := range sample.Metabolites {
		metabolites[string(m)] = v
	}
	resp.Available = true
	resp.Sample = Sample{
		Timestamp:   sample.Timestamp,
		Counter:     sample.Counter,
		Well:        sample.Well,
		Channels:    sample.Channels,
		Temperature: sample.Temperature,
		Metabolites: metabolites,
	}
	return nil
}

func (s *service) RunsList(req RunsListRequest, resp *RunsListResponse) error {
	listed, err := s.daemon.ListRuns(s.ctx, req.Limit)
	if err != nil {
		return err
	}
	resp.Runs = make([]Run, 0, len(listed))
	for _, run := range listed {
		resp.Runs = append(resp.Runs, convertRun(run))
	}
	return nil
}

func (s *service) RunDescribe(req RunDescribeRequest, resp *RunDescribeResponse) error {
	if req.ID == "" {
		return errors.New("run describe requires an id")
	}
	run, err := s.daemon.GetRun(s.ctx, req.ID)
	if err != nil {
		return err
	}
	resp.Run = convertRun(run)
	return nil
}

func (s *service) LogTail(req LogTailRequest, resp *LogTailResponse) error {
	logPath := s.daemon.LogPath()
	if logPath == "" {
		resp.Offset = 0
		return nil
	}
	wait := time.Duration(req.WaitMillis) * time.Millisecond
	if wait <= 0 && req.Follow {
		wait = time.Second
	}
	options := logs.TailOptions{
		Offset: req.Offset,
		Limit:  req.Limit,
		Follow: req.Follow,
		Wait:   wait,
	}
	ctx := s.ctx
	if req.Follow && wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(s.ctx, wait+500*time.Millisecond)
		defer cancel()
	}
	result, err := logs.Tail(ctx, logPath, options)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			resp.Offset = result.Offset
			return nil
		}
		return err
	}
	resp.Lines = result.Lines
	resp.Offset = result.Offset
	return nil
}
