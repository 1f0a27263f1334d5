package desim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventQueueOrdering(t *testing.T) {
	var q eventQueue

	push := func(tm Time, seq uint64) {
		q.push(&Event{Time: tm, Seq: seq})
	}

	// Deliberately out of order, with a three-way tie at time 5.
	push(7, 1)
	push(5, 2)
	push(5, 3)
	push(2, 4)
	push(5, 5)

	var got [][2]uint64
	for e := q.pop(); e != nil; e = q.pop() {
		got = append(got, [2]uint64{uint64(e.Time), e.Seq})
	}

	assert.Equal(t, [][2]uint64{{2, 4}, {5, 2}, {5, 3}, {5, 5}, {7, 1}}, got)
	assert.Nil(t, q.pop())
	assert.Nil(t, q.peek())
}
