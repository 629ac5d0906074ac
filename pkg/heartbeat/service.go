package heartbeat

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/adhocore/gronx"

	"github.com/witong42/OpenSpore/pkg/bus"
	"github.com/witong42/OpenSpore/pkg/logger"
)

// HeartbeatService fires the agent on a cron schedule so it can act
// without being prompted. A tick that matches the schedule builds a
// prompt from the heartbeat notes file and runs the callback; replies
// containing the HEARTBEAT_OK sentinel are swallowed.
type HeartbeatService struct {
	workspace      string
	cronExpr       string
	enabled        bool
	prompt         string
	onHeartbeat    func(string) (string, error)
	gron           *gronx.Gronx
	mu             sync.RWMutex
	started        bool
	stopChan       chan struct{}
	bus            *bus.MessageBus
	deliverChannel string
	deliverChatID  string
}

func NewHeartbeatService(workspace, cronExpr string, enabled bool) *HeartbeatService {
	return &HeartbeatService{
		workspace: workspace,
		cronExpr:  cronExpr,
		enabled:   enabled,
		gron:      gronx.New(),
		stopChan:  make(chan struct{}),
	}
}

func (hs *HeartbeatService) SetOnHeartbeat(fn func(string) (string, error)) {
	hs.mu.Lock()
	defer hs.mu.Unlock()
	hs.onHeartbeat = fn
}

// SetPrompt overrides the built-in heartbeat instruction with the
// configured one.
func (hs *HeartbeatService) SetPrompt(prompt string) {
	hs.mu.Lock()
	defer hs.mu.Unlock()
	hs.prompt = prompt
}

// SetDelivery routes non-trivial heartbeat replies to a channel.
func (hs *HeartbeatService) SetDelivery(msgBus *bus.MessageBus, channel, chatID string) {
	hs.mu.Lock()
	defer hs.mu.Unlock()
	hs.bus = msgBus
	hs.deliverChannel = channel
	hs.deliverChatID = chatID
}

func (hs *HeartbeatService) Start() error {
	hs.mu.Lock()
	defer hs.mu.Unlock()

	if !hs.enabled {
		return fmt.Errorf("heartbeat service is disabled")
	}
	if !hs.gron.IsValid(hs.cronExpr) {
		return fmt.Errorf("invalid heartbeat cron %q", hs.cronExpr)
	}
	if hs.started {
		return nil
	}
	hs.started = true

	go hs.runLoop(hs.stopChan)
	return nil
}

func (hs *HeartbeatService) Stop() {
	hs.mu.Lock()
	defer hs.mu.Unlock()
	if !hs.started {
		return
	}
	hs.started = false
	close(hs.stopChan)
	hs.stopChan = make(chan struct{})
}

// runLoop ticks every minute and consults the cron expression, so a
// schedule change does not need a timer rebuild.
func (hs *HeartbeatService) runLoop(stop <-chan struct{}) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			due, err := hs.gron.IsDue(hs.cronExpr, time.Now())
			if err != nil {
				logger.ErrorCF("heartbeat", "cron check failed", map[string]interface{}{"error": err.Error()})
				continue
			}
			if due {
				hs.fire()
			}
		}
	}
}

func (hs *HeartbeatService) fire() {
	hs.mu.RLock()
	onHeartbeat := hs.onHeartbeat
	msgBus := hs.bus
	channel := hs.deliverChannel
	chatID := hs.deliverChatID
	hs.mu.RUnlock()

	if onHeartbeat == nil {
		return
	}

	response, err := onHeartbeat(hs.buildPrompt())
	if err != nil {
		logger.ErrorCF("heartbeat", "heartbeat callback error", map[string]interface{}{"error": err.Error()})
		hs.log(fmt.Sprintf("Heartbeat error: %v", err))
		return
	}

	if strings.Contains(response, "HEARTBEAT_OK") {
		logger.DebugC("heartbeat", "heartbeat OK, no action needed")
		return
	}

	if msgBus != nil && channel != "" && chatID != "" {
		msgBus.PublishOutbound(bus.OutboundMessage{
			Channel: channel,
			ChatID:  chatID,
			Content: response,
		})
		logger.InfoCF("heartbeat", "heartbeat response delivered", map[string]interface{}{
			"channel": channel,
			"chat_id": chatID,
		})
	}
}

func (hs *HeartbeatService) buildPrompt() string {
	notesFile := filepath.Join(hs.workspace, "memory", "HEARTBEAT.md")

	var notes string
	if data, err := os.ReadFile(notesFile); err == nil {
		notes = string(data)
	}

	hs.mu.RLock()
	instruction := hs.prompt
	hs.mu.RUnlock()
	if instruction == "" {
		instruction = `Check if there are any tasks you should be aware of or actions you should take.
Review your journal and notes for important updates or pending work.`
	}

	return fmt.Sprintf(`# Heartbeat Check

Current time: %s

%s

If there is nothing to report, respond with exactly: HEARTBEAT_OK

%s
`, time.Now().Format("2006-01-02 15:04"), instruction, notes)
}

func (hs *HeartbeatService) log(message string) {
	logFile := filepath.Join(hs.workspace, "memory", "heartbeat.log")
	f, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return
	}
	defer f.Close()
	f.WriteString(fmt.Sprintf("[%s] %s\n", time.Now().Format("2006-01-02 15:04:05"), message))
}
