package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		_ = c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.client.Call("Amuza.Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stop requests a daemon shutdown.
func (c *Client) Stop() (*StopResponse, error) {
	var resp StopResponse
	if err := c.client.Call("Amuza.Stop", StopRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Eject opens the tray.
func (c *Client) Eject() (*TrayResponse, error) {
	var resp TrayResponse
	if err := c.client.Call("Amuza.Eject", TrayRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Insert closes the tray.
func (c *Client) Insert() (*TrayResponse, error) {
	var resp TrayResponse
	if err := c.client.Call("Amuza.Insert", TrayRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RunPlate starts a contiguous sampling run.
func (c *Client) RunPlate(req RunRequest) (*RunResponse, error) {
	var resp RunResponse
	if err := c.client.Call("Amuza.RunPlate", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Move starts an ordered sampling run.
func (c *Client) Move(req RunRequest) (*RunResponse, error) {
	var resp RunResponse
	if err := c.client.Call("Amuza.Move", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// StopRun halts the active sampling run.
func (c *Client) StopRun() (*StopRunResponse, error) {
	var resp StopRunResponse
	if err := c.client.Call("Amuza.StopRun", StopRunRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Calibrate recomputes the gain for a metabolite.
func (c *Client) Calibrate(metabolite string) (*CalibrateResponse, error) {
	var resp CalibrateResponse
	if err := c.client.Call("Amuza.Calibrate", CalibrateRequest{Metabolite: metabolite}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SetExpected records a standard concentration for calibration.
func (c *Client) SetExpected(metabolite string, concentration float64) error {
	var resp SetExpectedResponse
	return c.client.Call("Amuza.SetExpected", SetExpectedRequest{
		Metabolite:    metabolite,
		Concentration: concentration,
	}, &resp)
}

// SetGain overrides a conversion gain.
func (c *Client) SetGain(metabolite string, gain float64) error {
	var resp SetGainResponse
	return c.client.Call("Amuza.SetGain", SetGainRequest{Metabolite: metabolite, Gain: gain}, &resp)
}

// Temperature sets the plate temperature.
func (c *Client) Temperature(celsius float64) error {
	var resp TemperatureResponse
	return c.client.Call("Amuza.Temperature", TemperatureRequest{Celsius: celsius}, &resp)
}

// Needle jogs the sampling needle.
func (c *Client) Needle(up bool) error {
	var resp NeedleResponse
	return c.client.Call("Amuza.Needle", NeedleRequest{Up: up}, &resp)
}

// Sample returns the latest calibrated sensor sample.
func (c *Client) Sample() (*SampleResponse, error) {
	var resp SampleResponse
	if err := c.client.Call("Amuza.Sample", SampleRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RunsList returns recent run history.
func (c *Client) RunsList(limit int) (*RunsListResponse, error) {
	var resp RunsListResponse
	if err := c.client.Call("Amuza.RunsList", RunsListRequest{Limit: limit}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RunDescribe returns details for one run.
func (c *Client) RunDescribe(id string) (*RunDescribeResponse, error) {
	var resp RunDescribeResponse
	if err := c.client.Call("Amuza.RunDescribe", RunDescribeRequest{ID: id}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LogTail returns log lines from the daemon.
func (c *Client) LogTail(req LogTailRequest) (*LogTailResponse, error) {
	var resp LogTailResponse
	if err := c.client.Call("Amuza.LogTail", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
