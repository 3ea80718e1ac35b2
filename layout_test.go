package bitfield

import (
	"errors"
	"testing"

	"github.com/zeebo/assert"
	"github.com/zeebo/pcg"
)

var testKind = MustEnum(EnumDef{
	Name:     "Kind",
	Variants: unitVariants("Data", "Ack", "Reset", "Ping"),
})

func TestLayout(t *testing.T) {
	t.Run("Offsets", func(t *testing.T) {
		l := NewLayout("Header")
		version := AddField[uint64](l, "version", Uint(3))
		kind := AddField[Variant](l, "kind", testKind)
		urgent := AddField[bool](l, "urgent", Bool)
		l.Skip(2)
		length := AddField[uint64](l, "length", UintOrder(16, BigEndian))
		assert.NoError(t, l.Seal())

		assert.Equal(t, version.Offset(), uint(0))
		assert.Equal(t, kind.Offset(), uint(3))
		assert.Equal(t, urgent.Offset(), uint(5))
		assert.Equal(t, length.Offset(), uint(8))
		assert.Equal(t, l.Bits(), uint(24))
		assert.Equal(t, l.Size(), 3)
		assert.Equal(t, len(l.Fields()), 4)

		info, ok := l.Field("length")
		assert.That(t, ok)
		assert.Equal(t, info, FieldInfo{Name: "length", Offset: 8, Width: 16})

		buf := l.New()
		version.Set(buf, 5)
		kind.Set(buf, testKind.MustLookup("Reset"))
		urgent.Set(buf, true)
		length.Set(buf, 0x1234)
		assert.DeepEqual(t, buf, []byte{0x35, 0x12, 0x34})

		gotVersion, err := version.Get(buf)
		assert.NoError(t, err)
		assert.Equal(t, gotVersion, uint64(5))

		gotKind, err := kind.Get(buf)
		assert.NoError(t, err)
		assert.Equal(t, gotKind.Name, "Reset")

		gotUrgent, err := urgent.Get(buf)
		assert.NoError(t, err)
		assert.That(t, gotUrgent)

		gotLength, err := length.Get(buf)
		assert.NoError(t, err)
		assert.Equal(t, gotLength, uint64(0x1234))
	})

	t.Run("Filled", func(t *testing.T) {
		l := NewLayout("Odd")
		AddField[uint64](l, "a", Uint(5))
		err := l.Seal()
		assert.Error(t, err)
		assert.That(t, DefinitionError.Has(err))

		l = NewLayout("Odd", Unfilled())
		AddField[uint64](l, "a", Uint(5))
		AddField[uint64](l, "b", Uint(5))
		assert.NoError(t, l.Seal())
		assert.Equal(t, l.Size(), 2)
	})

	t.Run("Problems", func(t *testing.T) {
		l := NewLayout("Bad")
		AddField[uint64](l, "a", Uint(4))
		AddField[uint64](l, "a", Uint(4))
		AddField[uint64](l, "", Uint(8))
		AddField[uint64](l, "wide", Uint(65))
		err := l.Seal()
		assert.Error(t, err)
		assert.That(t, DefinitionError.Has(err))

		l = NewLayout("Late")
		AddField[uint64](l, "a", Uint(8))
		assert.NoError(t, l.Seal())
		AddField[uint64](l, "b", Uint(8))
		assert.Error(t, l.Seal())
		assert.Equal(t, l.Bits(), uint(8))
	})

	t.Run("SetChecked", func(t *testing.T) {
		l := NewLayout("Checked")
		a := AddField[uint64](l, "a", Uint(4))
		b := AddField[uint64](l, "b", Uint(4))
		assert.NoError(t, l.Seal())

		buf := l.New()
		assert.NoError(t, a.SetChecked(buf, 0xf))
		err := b.SetChecked(buf, 0x10)
		assert.That(t, Error.Has(err))

		var oob *OutOfBounds
		assert.That(t, errors.As(err, &oob))
		assert.Equal(t, oob.Raw, uint64(0x10))
		assert.Equal(t, oob.Width, uint(4))
		assert.Equal(t, buf[0], byte(0x0f))

		b.Set(buf, 0x1a)
		assert.Equal(t, buf[0], byte(0xaf))
	})

	t.Run("OddWidthOrder", func(t *testing.T) {
		l := NewLayout("Odd")
		n := AddField[uint64](l, "n", UintOrder(20, BigEndian))
		l.Skip(4)
		assert.NoError(t, l.Seal())

		buf := l.New()
		err := n.SetChecked(buf, 1)
		var oob *OutOfBounds
		assert.That(t, errors.As(err, &oob))
		assert.Equal(t, oob.Raw, uint64(0x01000000))
		assert.DeepEqual(t, buf, []byte{0, 0, 0})

		assert.NoError(t, n.SetChecked(buf, 0x10000))
		got, err := n.Get(buf)
		assert.NoError(t, err)
		assert.Equal(t, got, uint64(0x10000))
	})

	t.Run("Unsealed", func(t *testing.T) {
		l := NewLayout("Open")
		a := AddField[uint64](l, "a", Uint(8))
		buf := make([]byte, 1)

		_, err := a.Get(buf)
		assert.That(t, DefinitionError.Has(err))
		assert.That(t, DefinitionError.Has(a.SetChecked(buf, 1)))
		func() {
			defer func() { assert.That(t, recover() != nil) }()
			a.Set(buf, 1)
		}()
		assert.Equal(t, buf[0], byte(0))

		AddField[uint64](l, "b", Uint(3))
		assert.Error(t, l.Seal())
		_, err = a.Get(buf)
		assert.Error(t, err)
	})

	t.Run("Fuzz", func(t *testing.T) {
		l := NewLayout("Random", Unfilled())
		var fields []Field[uint64]
		for i := 0; i < 20; i++ {
			name := string(rune('a' + i))
			fields = append(fields, AddField[uint64](l, name, Uint(uint(pcg.Uint32n(MaxBits))+1)))
		}
		assert.NoError(t, l.Seal())

		buf := l.New()
		exp := make([]uint64, len(fields))
		for j := 0; j < 1000; j++ {
			i := pcg.Uint32n(uint32(len(fields)))
			v := pcg.Uint64()
			fields[i].Set(buf, v)
			exp[i] = v & mask(fields[i].Width())

			for i, f := range fields {
				got, err := f.Get(buf)
				assert.NoError(t, err)
				assert.Equal(t, got, exp[i])
			}
		}
	})
}
