package errors

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWrapPreservesChain(t *testing.T) {
	c := require.New(t)

	sentinel := New("connection refused")
	wrapped := Wrap(sentinel, "dial relay")
	c.Equal("dial relay: connection refused", wrapped.Error())
	c.True(Is(wrapped, sentinel))
	c.Equal(sentinel, Unwrap(wrapped))

	c.Nil(Wrap(nil, "ignored"))
	c.Nil(Wrapf(nil, "ignored %v", 1))
	c.Nil(WithStack(nil))
}

func TestWrapStdlibError(t *testing.T) {
	c := require.New(t)

	sentinel := stderrors.New("boom")
	c.True(Is(Wrapf(sentinel, "op %v", "pair"), sentinel))
}

func TestErrorfCarriesStack(t *testing.T) {
	c := require.New(t)

	err := Errorf("bad input %v", 7)
	c.Equal("bad input 7", err.Error())

	f, ok := err.(*fundamental)
	c.True(ok)
	stacks := f.fullStack()
	c.NotEmpty(stacks)
	c.Contains(stacks[0], "errors_test.go")
}

func TestWithStackKeepsMessage(t *testing.T) {
	c := require.New(t)

	sentinel := New("boom")
	err := WithStack(sentinel)
	c.Equal("boom", err.Error())
	c.True(Is(err, sentinel))
}
