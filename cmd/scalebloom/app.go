package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli"
	"gopkg.in/yaml.v3"

	"github.com/hupe1980/scalebloom"
)

var (
	configFlag = cli.StringFlag{
		Name:   "config",
		Usage:  "YAML file with defaults for capacity, error rate and logging",
		EnvVar: "SCALEBLOOM_CONFIG",
	}
	capacityFlag    = cli.IntFlag{Name: "capacity", Usage: "number of elements the first sub-filter is sized for"}
	errorRateFlag   = cli.Float64Flag{Name: "error-rate", Usage: "target false-positive rate"}
	idFlag          = cli.Uint64Flag{Name: "id", Usage: "id of the first key; 0 continues after the last mutation"}
	stdinFlag       = cli.BoolFlag{Name: "stdin", Usage: "read keys from standard input, one per line"}
	compressionFlag = cli.StringFlag{Name: "compression", Usage: "none, lz4 or zstd"}
)

type env struct {
	cfg Config
	out io.Writer
	in  io.Reader
}

func newApp(in io.Reader, out io.Writer) *cli.App {
	rt := &env{out: out, in: in}

	app := cli.NewApp()
	app.Name = "scalebloom"
	app.Usage = "scaling counting Bloom filter files"
	app.Version = scalebloom.Version()
	app.Writer = out
	app.Flags = []cli.Flag{configFlag}
	app.Before = func(c *cli.Context) error {
		cfg, err := LoadConfig(c.GlobalString(configFlag.Name))
		if err != nil {
			return err
		}
		rt.cfg = cfg
		return nil
	}
	app.Commands = []cli.Command{
		{
			Name:      "create",
			Usage:     "create an empty filter file",
			ArgsUsage: "FILE",
			Flags:     []cli.Flag{capacityFlag, errorRateFlag},
			Action:    rt.create,
		},
		{
			Name:      "add",
			Usage:     "add keys and flush",
			ArgsUsage: "FILE [KEY...]",
			Flags:     []cli.Flag{idFlag, stdinFlag},
			Action:    rt.add,
		},
		{
			Name:      "check",
			Usage:     "print whether each key may be present",
			ArgsUsage: "FILE [KEY...]",
			Flags:     []cli.Flag{stdinFlag},
			Action:    rt.check,
		},
		{
			Name:      "delete",
			Usage:     "delete keys and flush",
			ArgsUsage: "FILE [KEY...]",
			Flags:     []cli.Flag{idFlag, stdinFlag},
			Action:    rt.delete,
		},
		{
			Name:      "stats",
			Usage:     "print filter statistics as YAML",
			ArgsUsage: "FILE",
			Action:    rt.stats,
		},
		{
			Name:      "snapshot",
			Usage:     "write a compressed copy of a filter",
			ArgsUsage: "FILE OUT",
			Flags:     []cli.Flag{compressionFlag},
			Action:    rt.snapshot,
		},
		{
			Name:      "restore",
			Usage:     "turn a snapshot back into a filter file",
			ArgsUsage: "SNAPSHOT FILE",
			Action:    rt.restore,
		},
		{
			Name:  "version",
			Usage: "print the library version",
			Action: func(c *cli.Context) error {
				_, err := fmt.Fprintln(rt.out, scalebloom.Version())
				return err
			},
		},
	}
	return app
}

func requireArgs(c *cli.Context, n int) error {
	if c.NArg() < n {
		return fmt.Errorf("%s: expected %s", c.Command.Name, c.Command.ArgsUsage)
	}
	return nil
}

func (rt *env) open(path string) (*scalebloom.Filter, error) {
	return scalebloom.Load(rt.cfg.Capacity, rt.cfg.ErrorRate, path, rt.cfg.Options()...)
}

// keys returns the keys given after the file argument, or read from stdin.
func (rt *env) keys(c *cli.Context) ([][]byte, error) {
	var keys [][]byte
	for _, a := range c.Args().Tail() {
		keys = append(keys, []byte(a))
	}
	if c.Bool(stdinFlag.Name) {
		sc := bufio.NewScanner(rt.in)
		for sc.Scan() {
			keys = append(keys, append([]byte(nil), sc.Bytes()...))
		}
		if err := sc.Err(); err != nil {
			return nil, err
		}
	}
	if len(keys) == 0 {
		return nil, errors.New("no keys given")
	}
	return keys, nil
}

func (rt *env) create(c *cli.Context) error {
	if err := requireArgs(c, 1); err != nil {
		return err
	}
	capacity := rt.cfg.Capacity
	if c.IsSet(capacityFlag.Name) {
		capacity = c.Int(capacityFlag.Name)
	}
	errorRate := rt.cfg.ErrorRate
	if c.IsSet(errorRateFlag.Name) {
		errorRate = c.Float64(errorRateFlag.Name)
	}

	f, err := scalebloom.New(capacity, errorRate, c.Args().First(), rt.cfg.Options()...)
	if err != nil {
		return err
	}
	return f.Close()
}

type mutation func(f *scalebloom.Filter, key []byte, id uint64) error

// mutate applies op to every key. With sequential ids the keys get
// consecutive ids starting at --id; otherwise all keys share --id.
func (rt *env) mutate(c *cli.Context, op mutation, sequential bool) (err error) {
	if err := requireArgs(c, 1); err != nil {
		return err
	}
	keys, err := rt.keys(c)
	if err != nil {
		return err
	}
	f, err := rt.open(c.Args().First())
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	id := c.Uint64(idFlag.Name)
	if id == 0 {
		id = f.MemSeqnum() + 1
	}
	for i, k := range keys {
		kid := id
		if sequential {
			kid += uint64(i)
		}
		if err := op(f, k, kid); err != nil {
			return err
		}
	}
	if err := f.Flush(); err != nil {
		return err
	}
	_, err = fmt.Fprintf(rt.out, "%d keys, seqnum %d\n", len(keys), f.DiskSeqnum())
	return err
}

func (rt *env) add(c *cli.Context) error {
	return rt.mutate(c, (*scalebloom.Filter).Add, true)
}

func (rt *env) delete(c *cli.Context) error {
	if !c.IsSet(idFlag.Name) {
		return errors.New("delete: --id is required")
	}
	return rt.mutate(c, (*scalebloom.Filter).Delete, false)
}

func (rt *env) check(c *cli.Context) error {
	if err := requireArgs(c, 1); err != nil {
		return err
	}
	keys, err := rt.keys(c)
	if err != nil {
		return err
	}
	f, err := rt.open(c.Args().First())
	if err != nil {
		return err
	}
	defer f.Close()

	for _, k := range keys {
		if _, err := fmt.Fprintf(rt.out, "%s\t%t\n", k, f.Check(k)); err != nil {
			return err
		}
	}
	return nil
}

type subFilterReport struct {
	Capacity  uint64  `yaml:"capacity"`
	Counters  uint64  `yaml:"counters"`
	K         int     `yaml:"k"`
	Adds      uint64  `yaml:"adds"`
	Fill      float64 `yaml:"fill"`
	ErrorRate float64 `yaml:"error_rate"`
	Sealed    bool    `yaml:"sealed"`
}

type statsReport struct {
	Path                       string            `yaml:"path"`
	Capacity                   uint64            `yaml:"capacity"`
	ErrorRate                  float64           `yaml:"error_rate"`
	MemSeqnum                  uint64            `yaml:"mem_seqnum"`
	DiskSeqnum                 uint64            `yaml:"disk_seqnum"`
	TotalAdds                  uint64            `yaml:"total_adds"`
	FileSize                   int64             `yaml:"file_size"`
	EstimatedFalsePositiveRate float64           `yaml:"estimated_false_positive_rate"`
	SubFilters                 []subFilterReport `yaml:"sub_filters"`
}

func (rt *env) stats(c *cli.Context) error {
	if err := requireArgs(c, 1); err != nil {
		return err
	}
	f, err := rt.open(c.Args().First())
	if err != nil {
		return err
	}
	defer f.Close()

	st := f.Stats()
	report := statsReport{
		Path:                       f.Path(),
		Capacity:                   st.Capacity,
		ErrorRate:                  st.ErrorRate,
		MemSeqnum:                  st.MemSeqnum,
		DiskSeqnum:                 st.DiskSeqnum,
		TotalAdds:                  st.TotalAdds,
		FileSize:                   st.FileSize,
		EstimatedFalsePositiveRate: st.EstimatedFalsePositiveRate,
	}
	for _, s := range st.SubFilters {
		report.SubFilters = append(report.SubFilters, subFilterReport{
			Capacity:  s.Capacity,
			Counters:  s.Counters,
			K:         s.K,
			Adds:      s.Adds,
			Fill:      s.Fill,
			ErrorRate: s.ErrorRate,
			Sealed:    s.Sealed,
		})
	}

	enc := yaml.NewEncoder(rt.out)
	enc.SetIndent(2)
	if err := enc.Encode(report); err != nil {
		return err
	}
	return enc.Close()
}

func (rt *env) snapshot(c *cli.Context) (err error) {
	if err := requireArgs(c, 2); err != nil {
		return err
	}
	name := rt.cfg.Compression
	if c.IsSet(compressionFlag.Name) {
		name = c.String(compressionFlag.Name)
	}
	comp, err := scalebloom.ParseCompression(name)
	if err != nil {
		return err
	}

	f, err := rt.open(c.Args().Get(0))
	if err != nil {
		return err
	}
	defer f.Close()

	out, err := os.Create(c.Args().Get(1))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()

	w := bufio.NewWriter(out)
	if err := f.Snapshot(w, comp); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return out.Sync()
}

func (rt *env) restore(c *cli.Context) error {
	if err := requireArgs(c, 2); err != nil {
		return err
	}
	in, err := os.Open(c.Args().Get(0))
	if err != nil {
		return err
	}
	defer in.Close()

	f, err := scalebloom.Restore(bufio.NewReader(in), c.Args().Get(1), rt.cfg.Options()...)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(rt.out, "restored %s, seqnum %d\n", f.Path(), f.DiskSeqnum())
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}
