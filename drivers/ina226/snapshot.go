package ina226

// Snapshot collects one device's full readout.
// Zero values remain where individual reads fail.
type Snapshot struct {
	Bus_mV     uint16
	Shunt_uV   int32
	Current_uA int64
	Power_uW   int64
	Mode       uint8
}

func (m *Monitor) Snapshot(deviceNumber uint8) Snapshot {
	var s Snapshot
	m.SnapshotInto(deviceNumber, &s)
	return s
}

func (m *Monitor) SnapshotInto(deviceNumber uint8, out *Snapshot) {
	var s Snapshot
	if v, e := m.BusMilliVolts(false, deviceNumber); e == nil {
		s.Bus_mV = v
	}
	if v, e := m.ShuntMicroVolts(false, deviceNumber); e == nil {
		s.Shunt_uV = v
	}
	if v, e := m.BusMicroAmps(deviceNumber); e == nil {
		s.Current_uA = v
	}
	if v, e := m.BusMicroWatts(deviceNumber); e == nil {
		s.Power_uW = v
	}
	if v, e := m.GetMode(deviceNumber); e == nil {
		s.Mode = v
	}
	*out = s
}
