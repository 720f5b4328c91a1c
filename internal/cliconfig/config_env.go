package cliconfig

import "os"

// ApplyEnvConfig applies configuration from environment variables (HEVSUP_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("transport", os.Getenv("HEVSUP_TRANSPORT"), &cfg.Transport)
	s.setString("serial-port", os.Getenv("HEVSUP_SERIAL_PORT"), &cfg.SerialPort)
	s.setString("udp-listen", os.Getenv("HEVSUP_UDP_LISTEN"), &cfg.UDPListen)
	s.setString("udp-peer", os.Getenv("HEVSUP_UDP_PEER"), &cfg.UDPPeer)
	s.setString("recorder-dir", os.Getenv("HEVSUP_RECORDER_DIR"), &cfg.RecorderDir)
	s.setString("recorder-format", os.Getenv("HEVSUP_RECORDER_FORMAT"), &cfg.RecorderFormat)
	s.setString("model", os.Getenv("HEVSUP_MODEL_PATH"), &cfg.ModelPath)
	s.setString("log-level", os.Getenv("HEVSUP_LOG_LEVEL"), &cfg.LogLevel)

	if err := s.setDuration("tick-period", os.Getenv("HEVSUP_TICK_PERIOD"), &cfg.TickPeriod); err != nil {
		return err
	}
	if err := s.setDuration("policy-budget", os.Getenv("HEVSUP_POLICY_BUDGET"), &cfg.PolicyBudget); err != nil {
		return err
	}
	if err := s.setDuration("ack-window", os.Getenv("HEVSUP_ACK_WINDOW"), &cfg.AckWindow); err != nil {
		return err
	}
	if err := s.setDuration("backoff-initial", os.Getenv("HEVSUP_BACKOFF_INITIAL"), &cfg.BackoffInitial); err != nil {
		return err
	}
	if err := s.setDuration("backoff-max", os.Getenv("HEVSUP_BACKOFF_MAX"), &cfg.BackoffMax); err != nil {
		return err
	}
	if err := s.setDuration("quiet-period", os.Getenv("HEVSUP_QUIET_PERIOD"), &cfg.QuietPeriod); err != nil {
		return err
	}

	if err := s.setFloatFromString("warn-scale", os.Getenv("HEVSUP_WARN_SCALE"), &cfg.WarnScale); err != nil {
		return err
	}

	if err := s.setIntFromString("serial-baud", os.Getenv("HEVSUP_SERIAL_BAUD"), &cfg.SerialBaud); err != nil {
		return err
	}
	if err := s.setIntFromString("sim-period", os.Getenv("HEVSUP_SIM_PERIOD_MS"), &cfg.SimPeriodMs); err != nil {
		return err
	}
	if err := s.setIntFromString("receive-budget", os.Getenv("HEVSUP_RECEIVE_BUDGET"), &cfg.ReceiveBudget); err != nil {
		return err
	}
	if err := s.setIntFromString("max-ticks", os.Getenv("HEVSUP_MAX_TICKS"), &cfg.MaxTicks); err != nil {
		return err
	}
	if err := s.setIntFromString("retry-limit", os.Getenv("HEVSUP_RETRY_LIMIT"), &cfg.RetryLimit); err != nil {
		return err
	}
	if err := s.setIntFromString("seq-window", os.Getenv("HEVSUP_SEQ_WINDOW"), &cfg.SeqWindow); err != nil {
		return err
	}
	if err := s.setIntFromString("recorder-queue", os.Getenv("HEVSUP_RECORDER_QUEUE"), &cfg.RecorderQueue); err != nil {
		return err
	}
	if err := s.setIntFromString("recorder-max-records", os.Getenv("HEVSUP_RECORDER_MAX_RECORDS"), &cfg.RecorderMaxRecords); err != nil {
		return err
	}

	if err := s.setInt64FromString("sim-seed", os.Getenv("HEVSUP_SIM_SEED"), &cfg.SimSeed); err != nil {
		return err
	}

	if err := s.setFloatSliceFromString("envelope-min", os.Getenv("HEVSUP_ENVELOPE_MIN"), &cfg.EnvelopeMin); err != nil {
		return err
	}
	if err := s.setFloatSliceFromString("envelope-max", os.Getenv("HEVSUP_ENVELOPE_MAX"), &cfg.EnvelopeMax); err != nil {
		return err
	}
	if err := s.setFloatSliceFromString("fail-safe", os.Getenv("HEVSUP_FAIL_SAFE"), &cfg.FailSafe); err != nil {
		return err
	}

	return nil
}
