package db

type NewQueueMessage struct {
	Id           string
	QueueName    string
	Body         string
	Attributes   string // JSON
	VisibleAfter int64
	SentAt       int64
}

type ReceivedQueueMessage struct {
	Id            string
	Body          string
	Attributes    string // JSON
	ReceiptHandle string
	ReceiveCount  int
}
