// Command inashell is a host-side shell for exercising the current monitor
// driver against simulated chips. Useful for poking at calibration and
// conversion arithmetic without hardware on the bench.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/google/shlex"

	"powermon-go/drivers/ina226"
	"powermon-go/internal/sim"
)

const banner = `inashell - current monitor workbench (type "help")`

type shell struct {
	bus *sim.Bus
	mon *ina226.Monitor
	out *bufio.Writer
}

func main() {
	b := sim.NewBus()
	// Two chips on the default address range, like a typical dual-rail board.
	b.AddChip(0x40)
	b.AddChip(0x41)

	sh := &shell{
		bus: b,
		mon: ina226.New(b, ina226.Config{}),
		out: bufio.NewWriter(os.Stdout),
	}
	sh.run(os.Stdin)
}

func (sh *shell) run(in *os.File) {
	fmt.Fprintln(sh.out, banner)
	sh.out.Flush()

	sc := bufio.NewScanner(in)
	for {
		fmt.Fprint(sh.out, "> ")
		sh.out.Flush()
		if !sc.Scan() {
			return
		}
		args, err := shlex.Split(sc.Text())
		if err != nil {
			sh.printf("parse error: %v\n", err)
			continue
		}
		if len(args) == 0 {
			continue
		}
		if args[0] == "quit" || args[0] == "exit" {
			return
		}
		sh.dispatch(args)
		sh.out.Flush()
	}
}

func (sh *shell) printf(format string, a ...any) {
	fmt.Fprintf(sh.out, format, a...)
	sh.out.Flush()
}

func (sh *shell) dispatch(args []string) {
	cmd, rest := args[0], args[1:]
	var err error
	switch cmd {
	case "help":
		sh.help()
	case "begin":
		err = sh.begin(rest)
	case "status":
		sh.status()
	case "mv":
		err = sh.readCmd(rest, func(d uint8) error {
			v, err := sh.mon.BusMilliVolts(false, d)
			if err == nil {
				sh.printf("%d mV\n", v)
			}
			return err
		})
	case "uv":
		err = sh.readCmd(rest, func(d uint8) error {
			v, err := sh.mon.ShuntMicroVolts(false, d)
			if err == nil {
				sh.printf("%d uV\n", v)
			}
			return err
		})
	case "ua":
		err = sh.readCmd(rest, func(d uint8) error {
			v, err := sh.mon.BusMicroAmps(d)
			if err == nil {
				sh.printf("%d uA\n", v)
			}
			return err
		})
	case "uw":
		err = sh.readCmd(rest, func(d uint8) error {
			v, err := sh.mon.BusMicroWatts(d)
			if err == nil {
				sh.printf("%d uW\n", v)
			}
			return err
		})
	case "mode":
		err = sh.mode(rest)
	case "avg":
		err = sh.fieldCmd(rest, sh.mon.SetAveraging)
	case "busct":
		err = sh.fieldCmd(rest, func(v uint16, dev uint8) error {
			return sh.mon.SetBusConversion(uint8(v), dev)
		})
	case "shuntct":
		err = sh.fieldCmd(rest, func(v uint16, dev uint8) error {
			return sh.mon.SetShuntConversion(uint8(v), dev)
		})
	case "reset":
		err = sh.readCmd(rest, sh.mon.Reset)
	case "poke":
		err = sh.poke(rest)
	default:
		sh.printf("unknown command %q (try help)\n", cmd)
	}
	if err != nil {
		sh.printf("error: %v\n", err)
	}
}

func (sh *shell) help() {
	sh.printf(`commands:
  begin <maxAmps> <shunt_uOhm> [addr]   register devices (addr hex, default scan)
  status                                list registered devices
  mv|uv|ua|uw [dev]                     read bus mV / shunt uV / uA / uW
  mode [dev] <1-7>                      set operating mode
  avg [dev] <samples>                   set averaging (1..1024)
  busct|shuntct [dev] <0-7>             set conversion time code
  reset [dev]                           reset device
  poke <addr> <reg> <value>             write raw register on a sim chip
  quit
dev defaults to 0; "all" sweeps every device for mode/avg/busct/shuntct/reset
`)
}

func (sh *shell) begin(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: begin <maxAmps> <shunt_uOhm> [addr]")
	}
	maxAmps, err := strconv.ParseUint(args[0], 10, 8)
	if err != nil {
		return err
	}
	shunt, err := strconv.ParseUint(args[1], 10, 32)
	if err != nil {
		return err
	}
	addr := uint16(ina226.ScanAll)
	if len(args) > 2 {
		a, err := strconv.ParseUint(strings.TrimPrefix(args[2], "0x"), 16, 16)
		if err != nil {
			return err
		}
		addr = uint16(a)
	}
	before := sh.mon.Devices()
	idx, err := sh.mon.Begin(uint8(maxAmps), uint32(shunt), addr)
	if err != nil {
		return err
	}
	sh.printf("%d device(s) registered, first index %d\n", sh.mon.Devices()-before, idx)
	return nil
}

func (sh *shell) status() {
	n := sh.mon.Devices()
	if n == 0 {
		sh.printf("no devices (run begin)\n")
		return
	}
	for i := uint8(0); i < n; i++ {
		addr, _ := sh.mon.Address(i)
		lsb, _ := sh.mon.CurrentLSBMicroAmps(i)
		cal, _ := sh.mon.CalibrationWord(i)
		mode, _ := sh.mon.GetMode(i)
		sh.printf("dev %d  addr 0x%02X  lsb %d uA  cal %d  mode %d\n",
			i, addr, lsb, cal, mode)
	}
}

// readCmd runs a per-device action; args may name a device or "all".
func (sh *shell) readCmd(args []string, fn func(uint8) error) error {
	dev, err := parseDev(args, 0)
	if err != nil {
		return err
	}
	return fn(dev)
}

// fieldCmd parses [dev] <value> and applies a config field setter.
func (sh *shell) fieldCmd(args []string, fn func(uint16, uint8) error) error {
	dev := uint8(0)
	valArg := ""
	switch len(args) {
	case 1:
		valArg = args[0]
	case 2:
		d, err := parseDev(args, 0)
		if err != nil {
			return err
		}
		dev = d
		valArg = args[1]
	default:
		return fmt.Errorf("usage: [dev] <value>")
	}
	v, err := strconv.ParseUint(valArg, 10, 16)
	if err != nil {
		return err
	}
	return fn(uint16(v), dev)
}

func (sh *shell) mode(args []string) error {
	dev := uint8(0)
	modeArg := ""
	switch len(args) {
	case 1:
		modeArg = args[0]
	case 2:
		d, err := parseDev(args, 0)
		if err != nil {
			return err
		}
		dev = d
		modeArg = args[1]
	default:
		return fmt.Errorf("usage: mode [dev] <1-7>")
	}
	m, err := strconv.ParseUint(modeArg, 10, 8)
	if err != nil {
		return err
	}
	return sh.mon.SetMode(uint8(m), dev)
}

func (sh *shell) poke(args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("usage: poke <addr> <reg> <value>")
	}
	addr, err := strconv.ParseUint(strings.TrimPrefix(args[0], "0x"), 16, 16)
	if err != nil {
		return err
	}
	reg, err := strconv.ParseUint(strings.TrimPrefix(args[1], "0x"), 16, 8)
	if err != nil {
		return err
	}
	val, err := strconv.ParseInt(args[2], 10, 32)
	if err != nil {
		return err
	}
	chip := sh.bus.Chip(uint16(addr))
	if chip == nil {
		return fmt.Errorf("no chip at 0x%02X", addr)
	}
	chip.SetRaw(byte(reg), uint16(int16(val)))
	return nil
}

func parseDev(args []string, pos int) (uint8, error) {
	if len(args) <= pos {
		return 0, nil
	}
	if args[pos] == "all" {
		return ina226.AllDevices, nil
	}
	d, err := strconv.ParseUint(args[pos], 10, 8)
	if err != nil {
		return 0, err
	}
	return uint8(d), nil
}
