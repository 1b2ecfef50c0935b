package cache

// lruNode is a node in a shard's LRU doubly-linked list.
// Most recently used entries are at the front.
type lruNode struct {
	key  string
	prev *lruNode
	next *lruNode
}

type lruList struct {
	head *lruNode
	tail *lruNode
	size int
}

// pushFront adds a key at the front and returns its node.
func (l *lruList) pushFront(key string) *lruNode {
	node := &lruNode{key: key}
	if l.head == nil {
		l.head = node
		l.tail = node
	} else {
		node.next = l.head
		l.head.prev = node
		l.head = node
	}
	l.size++
	return node
}

// remove unlinks a node from the list.
func (l *lruList) remove(node *lruNode) {
	if node == nil {
		return
	}
	if node.prev != nil {
		node.prev.next = node.next
	} else {
		l.head = node.next
	}
	if node.next != nil {
		node.next.prev = node.prev
	} else {
		l.tail = node.prev
	}
	node.prev = nil
	node.next = nil
	l.size--
}

// moveToFront marks a node as most recently used.
func (l *lruList) moveToFront(node *lruNode) {
	if node == nil || node == l.head {
		return
	}
	if node.prev != nil {
		node.prev.next = node.next
	}
	if node.next != nil {
		node.next.prev = node.prev
	} else {
		l.tail = node.prev
	}
	node.prev = nil
	node.next = l.head
	if l.head != nil {
		l.head.prev = node
	}
	l.head = node
	if l.tail == nil {
		l.tail = node
	}
}

// back returns the least recently used node.
func (l *lruList) back() *lruNode {
	return l.tail
}
