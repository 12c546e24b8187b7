package scheduler_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
)

type sleeperMock struct {
	mock.Mock
}

func (s *sleeperMock) Sleep(d time.Duration) {
	s.Called(d)
}

func newSleeperMock(t *testing.T) *sleeperMock {
	t.Helper()
	m := new(sleeperMock)
	return m
}
