package main

import (
	"github.com/BurntSushi/toml"
	"github.com/zeebo/errs"
	"github.com/zeebo/pcg"

	"github.com/zeebo/bitfield"
)

// defaultConfig is used when no layout file is given.
const defaultConfig = `
records = 10000

[[enum]]
name = "Opcode"
endian = "native"

  [[enum.variant]]
  name = "Nop"
  [[enum.variant]]
  name = "Load"
  [[enum.variant]]
  name = "Store"
  [[enum.variant]]
  name = "Jump"

[[enum]]
name = "Status"
bits = 3

  [[enum.variant]]
  name = "Ok"
  [[enum.variant]]
  name = "Retry"
  value = 4
  [[enum.variant]]
  name = "Fatal"
  [[enum.variant]]
  name = "Custom"
  data = true

[layout]
name = "Instruction"

  [[layout.field]]
  name = "op"
  enum = "Opcode"
  [[layout.field]]
  name = "valid"
  bool = true
  [[layout.field]]
  skip = true
  bits = 1
  [[layout.field]]
  name = "status"
  enum = "Status"
  [[layout.field]]
  name = "reg"
  bits = 5
  [[layout.field]]
  name = "imm"
  bits = 20
  endian = "big"
  [[layout.field]]
  name = "addr"
  bits = 48
  endian = "little"
  [[layout.field]]
  name = "tag"
  bits = 16
  endian = "big"
`

type config struct {
	Records int          `toml:"records"`
	Enums   []enumConfig `toml:"enum"`
	Layout  layoutConfig `toml:"layout"`
}

type enumConfig struct {
	Name     string          `toml:"name"`
	Kind     string          `toml:"kind"`
	Bits     *uint           `toml:"bits"`
	Endian   string          `toml:"endian"`
	Variants []variantConfig `toml:"variant"`
}

type variantConfig struct {
	Name  string  `toml:"name"`
	Value *uint64 `toml:"value"`
	Data  bool    `toml:"data"`
}

type layoutConfig struct {
	Name     string        `toml:"name"`
	Unfilled bool          `toml:"unfilled"`
	Fields   []fieldConfig `toml:"field"`
}

type fieldConfig struct {
	Name   string `toml:"name"`
	Bits   uint   `toml:"bits"`
	Endian string `toml:"endian"`
	Enum   string `toml:"enum"`
	Bool   bool   `toml:"bool"`
	Skip   bool   `toml:"skip"`
}

// loadConfig reads the layout file at path, or the default layout when path
// is empty.
func loadConfig(path string) (config, error) {
	if path == "" {
		return parseConfig(defaultConfig)
	}

	var cfg config
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return config{}, errs.Wrap(err)
	}
	return cfg, checkUndecoded(md)
}

func parseConfig(data string) (config, error) {
	var cfg config
	md, err := toml.Decode(data, &cfg)
	if err != nil {
		return config{}, errs.Wrap(err)
	}
	return cfg, checkUndecoded(md)
}

func checkUndecoded(md toml.MetaData) error {
	if keys := md.Undecoded(); len(keys) > 0 {
		return errs.New("unknown keys in layout: %v", keys)
	}
	return nil
}

func parseKind(kind string) (bitfield.Kind, error) {
	switch kind {
	case "", "enum":
		return bitfield.KindEnum, nil
	case "struct":
		return bitfield.KindStruct, nil
	case "union":
		return bitfield.KindUnion, nil
	}
	return 0, errs.New("unknown kind %q", kind)
}

func (ec enumConfig) def() (bitfield.EnumDef, error) {
	kind, err := parseKind(ec.Kind)
	if err != nil {
		return bitfield.EnumDef{}, errs.Wrap(err)
	}

	def := bitfield.EnumDef{Name: ec.Name, Kind: kind}
	if ec.Bits != nil {
		def.Attrs = append(def.Attrs, bitfield.BitsAttr(*ec.Bits))
	}
	if ec.Endian != "" {
		def.Attrs = append(def.Attrs, bitfield.Attr{Name: "endian", Value: ec.Endian})
	}
	for _, vc := range ec.Variants {
		v := bitfield.Variant{Name: vc.Name, Data: vc.Data}
		if vc.Value != nil {
			v.Discriminant, v.Explicit = *vc.Value, true
		}
		def.Variants = append(def.Variants, v)
	}
	return def, nil
}

// schema is a built layout along with a check for every named field.
type schema struct {
	layout *bitfield.Layout
	enums  map[string]*bitfield.Enum
	checks []fieldCheck
}

func build(cfg config) (*schema, error) {
	s := &schema{enums: make(map[string]*bitfield.Enum)}

	for _, ec := range cfg.Enums {
		def, err := ec.def()
		if err != nil {
			return nil, err
		}
		e, err := bitfield.NewEnum(def)
		if err != nil {
			return nil, errs.Wrap(err)
		}
		if _, ok := s.enums[e.Name()]; ok {
			return nil, errs.New("enum %s declared twice", e.Name())
		}
		s.enums[e.Name()] = e
	}

	var opts []bitfield.LayoutOption
	if cfg.Layout.Unfilled {
		opts = append(opts, bitfield.Unfilled())
	}
	s.layout = bitfield.NewLayout(cfg.Layout.Name, opts...)

	for _, fc := range cfg.Layout.Fields {
		switch {
		case fc.Skip:
			s.layout.Skip(fc.Bits)

		case fc.Enum != "":
			e, ok := s.enums[fc.Enum]
			if !ok {
				return nil, errs.New("field %s: unknown enum %s", fc.Name, fc.Enum)
			}
			variants := e.Variants()
			if len(variants) == 0 {
				return nil, errs.New("field %s: enum %s has no unit variants", fc.Name, fc.Enum)
			}
			f := bitfield.AddField[bitfield.Variant](s.layout, fc.Name, e)
			s.checks = append(s.checks, newCheck(f, func(rng *pcg.T) bitfield.Variant {
				return variants[rng.Uint32n(uint32(len(variants)))]
			}))

		case fc.Bool:
			f := bitfield.AddField[bool](s.layout, fc.Name, bitfield.Bool)
			s.checks = append(s.checks, newCheck(f, func(rng *pcg.T) bool {
				return rng.Uint64()&1 == 1
			}))

		default:
			order, err := bitfield.ParseByteOrder(fc.Endian)
			if err != nil {
				return nil, errs.Wrap(err)
			}
			spec, m := bitfield.UintOrder(fc.Bits, order), lowBits(fc.Bits)
			f := bitfield.AddField[uint64](s.layout, fc.Name, spec)
			s.checks = append(s.checks, newCheck(f, func(rng *pcg.T) uint64 {
				// start from a raw code so the value survives reordering
				v, _ := spec.FromBytes(rng.Uint64() & m)
				return v
			}))
		}
	}

	if err := s.layout.Seal(); err != nil {
		return nil, errs.Wrap(err)
	}
	if s.layout.Size() == 0 {
		return nil, errs.New("layout %s has no fields", s.layout.Name())
	}
	return s, nil
}

func lowBits(width uint) uint64 {
	if width >= 64 {
		return ^uint64(0)
	}
	return 1<<width - 1
}
