package simulation

// IDSequence - 에이전트 ID 발급기 (셋업 때만 사용)
type IDSequence interface {
	Next() int
}

// Counter - start 부터 1씩 증가하는 기본 IDSequence
type Counter struct {
	next int
}

func NewCounter(start int) *Counter {
	return &Counter{next: start}
}

func (c *Counter) Next() int {
	id := c.next
	c.next++
	return id
}
