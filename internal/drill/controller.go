package drill

// Controller is the drill state machine. LEARNING walks the bank in order;
// only at the end of the bank does it look at the wrong queue. REVIEW always
// presents the current head of the queue, so an item keeps coming back until
// it is answered correctly and RecordOutcome removes it.
type Controller struct {
	size       int
	mode       Mode
	cursor     int
	current    int
	wrongQueue []int
}

// NewController creates a controller for a bank of size words, starting in
// LEARNING at item 0
func NewController(size int) *Controller {
	return &Controller{size: size, mode: ModeLearning}
}

// RecordOutcome updates the wrong queue for an answered item. A correct
// answer removes the item in any mode; a wrong answer queues it once.
func (c *Controller) RecordOutcome(index int, verdict Verdict) {
	pos := c.queuePosition(index)

	if verdict == Correct {
		if pos >= 0 {
			c.wrongQueue = append(c.wrongQueue[:pos], c.wrongQueue[pos+1:]...)
		}
		return
	}

	if pos < 0 {
		c.wrongQueue = append(c.wrongQueue, index)
	}
}

// Advance moves to the next item to present
func (c *Controller) Advance() Transition {
	if c.mode == ModeReview {
		if len(c.wrongQueue) > 0 {
			c.current = c.wrongQueue[0]
			return TransitionReviewNext
		}
		c.mode = ModeLearning
		c.cursor = 0
		c.current = 0
		return TransitionReviewComplete
	}

	next := c.cursor + 1
	if next < c.size {
		c.cursor = next
		c.current = next
		return TransitionLearningNext
	}

	if len(c.wrongQueue) > 0 {
		c.mode = ModeReview
		c.current = c.wrongQueue[0]
		return TransitionReviewStarted
	}

	c.cursor = 0
	c.current = 0
	return TransitionPassRestarted
}

// Mode returns the current pass
func (c *Controller) Mode() Mode {
	return c.mode
}

// Cursor returns the position within the LEARNING pass
func (c *Controller) Cursor() int {
	return c.cursor
}

// Current returns the index of the item being presented
func (c *Controller) Current() int {
	return c.current
}

// WrongQueue returns a copy of the queued item indices, oldest first
func (c *Controller) WrongQueue() []int {
	queue := make([]int, len(c.wrongQueue))
	copy(queue, c.wrongQueue)
	return queue
}

func (c *Controller) queuePosition(index int) int {
	for i, queued := range c.wrongQueue {
		if queued == index {
			return i
		}
	}
	return -1
}
