package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueSealed(t *testing.T) {
	// Verify all nine variants implement Value (compile-time check via assignment)
	var _ Value = Undefined{}
	var _ Value = Integer(1)
	var _ Value = Float(1.5)
	var _ Value = Nominal("a")
	var _ Value = Text("a")
	var _ Value = QuoteString("a")
	var _ Value = TimeStamp{Ticks: 1, TPS: DefaultTPS}
	var _ Value = Predicate{}
	var _ Value = ColPredicate{}
}

func TestPredicateCloneIsDeep(t *testing.T) {
	inner := Predicate{VocabID: 7, Args: []DataValue{{FargID: 8, FargKind: FargUntyped, Value: Integer(1)}}}
	outer := Predicate{VocabID: 3, Args: []DataValue{{FargID: 4, FargKind: FargUntyped, Value: inner}}}

	c := outer.CloneValue().(Predicate)
	c.Args[0].Value.(Predicate).Args[0].Value = Integer(99)

	got := outer.Args[0].Value.(Predicate).Args[0].Value
	assert.Equal(t, Integer(1), got, "clone must not alias nested args")
}

func TestIsEmpty(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want bool
	}{
		{"undefined", Undefined{}, true},
		{"empty nominal", Nominal(""), true},
		{"nominal", Nominal("x"), false},
		{"empty text", Text(""), true},
		{"empty quote string", QuoteString(""), false},
		{"zero integer", Integer(0), false},
		{"empty predicate", Predicate{}, true},
		{"predicate", Predicate{VocabID: 1}, false},
		{"empty col predicate", ColPredicate{}, true},
		{"nil", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsEmpty(tt.v))
		})
	}
}

func TestDefaultValue(t *testing.T) {
	tests := []struct {
		name string
		farg FormalArg
		want Value
	}{
		{"untyped", FormalArg{Kind: FargUntyped}, Undefined{}},
		{"integer", FormalArg{Kind: FargInteger}, Integer(0)},
		{"integer clamped", FormalArg{Kind: FargInteger, Constraint: IntRange{Min: 5, Max: 9}}, Integer(5)},
		{"integer clamped high", FormalArg{Kind: FargInteger, Constraint: IntRange{Min: -9, Max: -5}}, Integer(-5)},
		{"float clamped", FormalArg{Kind: FargFloat, Constraint: FloatRange{Min: 1.5, Max: 2}}, Float(1.5)},
		{"nominal", FormalArg{Kind: FargNominal}, Nominal("")},
		{"text", FormalArg{Kind: FargText}, Text("")},
		{"quote string", FormalArg{Kind: FargQuoteString}, QuoteString("")},
		{"time stamp", FormalArg{Kind: FargTimeStamp}, TimeStamp{Ticks: 0, TPS: 60}},
		{"predicate", FormalArg{Kind: FargPredicate}, Predicate{}},
		{"col predicate", FormalArg{Kind: FargColPredicate}, ColPredicate{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DefaultValue(tt.farg, 60))
		})
	}
}

func TestLegal(t *testing.T) {
	untyped := FormalArg{Kind: FargUntyped}
	ranged := FormalArg{Kind: FargInteger, Constraint: IntRange{Min: 0, Max: 10}}
	nominals := FormalArg{Kind: FargNominal, Constraint: NominalSet{"red", "green"}}
	preds := FormalArg{Kind: FargPredicate, Constraint: PredicateSet{4}}

	tests := []struct {
		name string
		farg FormalArg
		v    Value
		want bool
	}{
		{"untyped accepts undefined", untyped, Undefined{}, true},
		{"untyped accepts integer", untyped, Integer(3), true},
		{"untyped accepts predicate", untyped, Predicate{VocabID: 2}, true},
		{"untyped rejects empty predicate", untyped, Predicate{}, false},
		{"untyped rejects text", untyped, Text("x"), false},
		{"untyped rejects empty nominal", untyped, Nominal(""), false},
		{"integer in range", ranged, Integer(10), true},
		{"integer out of range", ranged, Integer(11), false},
		{"integer rejects float", ranged, Float(1), false},
		{"integer rejects undefined", ranged, Undefined{}, false},
		{"nominal in set", nominals, Nominal("red"), true},
		{"nominal outside set", nominals, Nominal("blue"), false},
		{"empty nominal always legal", nominals, Nominal(""), true},
		{"predicate in set", preds, Predicate{VocabID: 4}, true},
		{"predicate outside set", preds, Predicate{VocabID: 5}, false},
		{"empty predicate always legal", preds, Predicate{}, true},
		{"text", FormalArg{Kind: FargText}, Text("free text"), true},
		{"quote string rejects nominal", FormalArg{Kind: FargQuoteString}, Nominal("x"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Legal(tt.farg, tt.v))
		})
	}
}

func TestCheckScalar(t *testing.T) {
	require.NoError(t, CheckScalar(Nominal("a b")))
	require.NoError(t, CheckScalar(Nominal("")))
	require.NoError(t, CheckScalar(QuoteString("say hi")))

	err := CheckScalar(Nominal("a(b"))
	assert.Equal(t, CodeInvalidName, CodeOf(err))

	err = CheckScalar(QuoteString(`a"b`))
	assert.Equal(t, CodeInvalidArgument, CodeOf(err))

	err = CheckScalar(TimeStamp{Ticks: -1, TPS: DefaultTPS})
	assert.Equal(t, CodeOutOfRange, CodeOf(err))
}

func TestFormatFloat(t *testing.T) {
	assert.Equal(t, "1.0", FormatFloat(1))
	assert.Equal(t, "-2.5", FormatFloat(-2.5))
	assert.Equal(t, "0.0", FormatFloat(0))
}
