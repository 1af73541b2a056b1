package control

import (
	"time"

	"gatewayd/internal/gwconfig"
	"gatewayd/internal/manager"
	"gatewayd/internal/secrets"
	"gatewayd/pkg/types"
)

// ConfigView masks cfg for display.
func ConfigView(cfg gwconfig.Config) types.ConfigResponse {
	set := secrets.MaskedFields(cfg)
	if set == nil {
		set = []string{}
	}
	return types.ConfigResponse{
		Config:      secrets.Mask(cfg),
		SecretsSet:  set,
		Placeholder: secrets.Placeholder,
	}
}

func StatusResponse(st manager.Status, uptime time.Duration, now time.Time) types.StatusResponse {
	out := types.StatusResponse{
		State:          string(st.State),
		PID:            st.PID,
		RunID:          st.RunID,
		UptimeSeconds:  int64(uptime / time.Second),
		LastError:      st.LastError,
		Starts:         st.Starts,
		Crashes:        st.Crashes,
		ServerTimeUnix: now.Unix(),
	}
	if !st.StartedAt.IsZero() {
		out.StartedAtUnix = st.StartedAt.Unix()
	}
	if le := st.LastExit; le != nil {
		out.LastExit = &types.ExitStatus{Code: le.Code, Signal: le.Signal, AtUnix: le.At.Unix(), Expected: le.Expected}
	}
	return out
}

func ActionResponse(res manager.Result) types.ActionResponse {
	out := types.ActionResponse{
		Action:  res.Action,
		OK:      res.OK(),
		Changed: res.Changed,
		State:   string(res.State),
	}
	if res.Err != nil {
		out.Error = res.Err.Error()
	}
	return out
}

func LogLine(l manager.LogLine) types.LogLine {
	return types.LogLine{Seq: l.Seq, TimeUnixMs: l.Time.UnixMilli(), Text: l.Text}
}
