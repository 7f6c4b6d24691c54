package frontier

import "container/heap"

// priorityQueue orders *QueuedURL by (priority desc, depth asc,
// discoveredAt asc), per the frontier's ordering contract. Higher
// priority values dequeue first; among equal priority, shallower URLs
// dequeue first; among equal priority and depth, earlier discoveries
// dequeue first.
type priorityQueue []*QueuedURL

func (pq priorityQueue) Len() int { return len(pq) }

func (pq priorityQueue) Less(i, j int) bool {
	a, b := pq[i], pq[j]
	if a.priority != b.priority {
		return a.priority > b.priority
	}
	if a.depth != b.depth {
		return a.depth < b.depth
	}
	return a.discoveredAt.Before(b.discoveredAt)
}

func (pq priorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *priorityQueue) Push(x any) {
	item := x.(*QueuedURL)
	item.index = len(*pq)
	*pq = append(*pq, item)
}

func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*pq = old[:n-1]
	return item
}

// newPriorityQueue returns an initialized, empty heap-ordered queue.
func newPriorityQueue() *priorityQueue {
	pq := &priorityQueue{}
	heap.Init(pq)
	return pq
}

func (pq *priorityQueue) push(item *QueuedURL) {
	heap.Push(pq, item)
}

func (pq *priorityQueue) pop() (*QueuedURL, bool) {
	if pq.Len() == 0 {
		return nil, false
	}
	return heap.Pop(pq).(*QueuedURL), true
}

func (pq *priorityQueue) peek() (*QueuedURL, bool) {
	if pq.Len() == 0 {
		return nil, false
	}
	return (*pq)[0], true
}
