package contract

import "sync"

// 消息类型（message_type）。
const (
	MsgComposition      = "composition"
	MsgSelect           = "select"
	MsgCommit           = "commit"
	MsgOption           = "option"
	MsgProperty         = "property"
	MsgSchema           = "schema"
	MsgNoMoreCandidates = "no_more_candidates"
	// MsgAny 订阅全部类型。
	MsgAny = "*"
)

// Handler 接收 (message_type, message_value)。
type Handler func(msgType, value string)

type subscription struct {
	id      int
	msgType string
	h       Handler
}

// Messenger: 显式的发布/订阅通道。同步投递，按注册顺序调用。
type Messenger struct {
	mu   sync.Mutex
	subs []subscription
	next int
}

// NewMessenger 创建空通道。
func NewMessenger() *Messenger { return &Messenger{} }

// Subscribe 注册处理函数，返回取消函数（可重复调用）。
func (m *Messenger) Subscribe(msgType string, h Handler) (cancel func()) {
	if h == nil {
		return func() {}
	}
	m.mu.Lock()
	m.next++
	id := m.next
	m.subs = append(m.subs, subscription{id: id, msgType: msgType, h: h})
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		for i, s := range m.subs {
			if s.id == id {
				m.subs = append(m.subs[:i:i], m.subs[i+1:]...)
				return
			}
		}
	}
}

// Publish 同步投递。投递期间的订阅变更不影响本次投递。
func (m *Messenger) Publish(msgType, value string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	snapshot := make([]subscription, len(m.subs))
	copy(snapshot, m.subs)
	m.mu.Unlock()
	for _, s := range snapshot {
		if s.msgType == msgType || s.msgType == MsgAny {
			s.h(msgType, value)
		}
	}
}

// Len 返回当前订阅数量。
func (m *Messenger) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}
