// Package activity publishes one message per successful download to the
// activity bus, per spec.md §4.7. Grounded on original_source's
// app/commons/kafka_producer.py (the activity message shape, the
// schema-validate-then-send flow) and storj-storj's go.mod dependency on
// github.com/Shopify/sarama. The original validates against an Avro schema
// with fastavro; no Avro or JSON-schema library appears anywhere in the
// retrieved example pack, so github.com/xeipuuv/gojsonschema is used here
// as a named (not pack-grounded) substitute, with the message re-expressed
// as JSON instead of Avro-binary.
package activity

import (
	"fmt"
	"time"

	"github.com/Shopify/sarama"
	"github.com/xeipuuv/gojsonschema"

	"github.com/PilotDataPlatform/download/cmn"
)

// Message is one activity-log event, matching the field set
// kafka_producer.py's create_activity_log builds.
type Message struct {
	ActivityType    string   `json:"activity_type"`
	ActivityTime    string   `json:"activity_time"`
	ItemID          *string  `json:"item_id"`
	ItemType        string   `json:"item_type"`
	ItemName        string   `json:"item_name"`
	ItemParentPath  string   `json:"item_parent_path"`
	ContainerCode   string   `json:"container_code"`
	ContainerType   string   `json:"container_type"`
	Zone            int      `json:"zone"`
	User            string   `json:"user"`
	ImportedFrom    string   `json:"imported_from"`
	Changes         []string `json:"changes"`
}

// Schema pairs a named JSON schema with the topic messages validated
// against it publish to, per spec.md §4.7's item-vs-dataset split.
type Schema struct {
	Name   string
	Topic  string
	loaded gojsonschema.JSONLoader
}

// NewSchema compiles a JSON-schema document for later validation.
func NewSchema(name, topic, schemaJSON string) Schema {
	return Schema{Name: name, Topic: topic, loaded: gojsonschema.NewStringLoader(schemaJSON)}
}

// ItemSchemaName and DatasetSchemaName name the two standard schemas of
// spec.md §4.7 (item vs dataset activity). Callers load the actual schema
// document and pick the topic at startup via NewSchema; these constants only
// name the schemas.
const (
	ItemSchemaName    = "metadata_items_activity"
	DatasetSchemaName = "dataset_activity"
)

// Log publishes validated activity messages to Kafka.
type Log struct {
	producer sarama.SyncProducer
}

// Open connects a synchronous Kafka producer to brokers, mirroring
// kafka_producer.py's AIOKafkaProducer(bootstrap_servers=...) construction,
// adapted to sarama's synchronous API since this service emits one message
// per completed download rather than a continuous stream.
func Open(brokers []string) (*Log, error) {
	conf := sarama.NewConfig()
	conf.Producer.Return.Successes = true
	conf.Producer.RequiredAcks = sarama.WaitForAll
	conf.Producer.Retry.Max = 3

	producer, err := sarama.NewSyncProducer(brokers, conf)
	if err != nil {
		return nil, cmn.NewErrUpstreamUnavailable(err, "activity")
	}
	return &Log{producer: producer}, nil
}

// NewForProducer builds a Log directly over an already-constructed
// sarama.SyncProducer, letting tests inject sarama/mocks.
func NewForProducer(producer sarama.SyncProducer) *Log {
	return &Log{producer: producer}
}

func (l *Log) Close() error {
	return l.producer.Close()
}

// Publish validates msg against schema and sends it to schema.Topic.
func (l *Log) Publish(schema Schema, msg Message) error {
	body, err := cmn.Marshal(msg)
	if err != nil {
		return err
	}

	if schema.loaded != nil {
		result, err := gojsonschema.Validate(schema.loaded, gojsonschema.NewBytesLoader(body))
		if err != nil {
			return cmn.NewErrUpstreamUnavailable(err, "activity-schema")
		}
		if !result.Valid() {
			return cmn.NewErrUpstreamUnavailable(fmt.Errorf("message failed schema %s: %v", schema.Name, result.Errors()), "activity-schema")
		}
	}

	_, _, err = l.producer.SendMessage(&sarama.ProducerMessage{
		Topic: schema.Topic,
		Value: sarama.ByteEncoder(body),
	})
	if err != nil {
		return cmn.NewErrUpstreamUnavailable(err, "activity")
	}
	return nil
}

// NewItemDownloadMessage builds the activity message for one file/folder
// download. When multiple files were archived together, the manager passes
// itemID=nil and itemName=the archive's basename so the event is not
// mis-attributed to the first file only (spec.md §4.7).
func NewItemDownloadMessage(itemID *string, itemType, itemName, itemParentPath, containerCode, containerType string, zone int, operator string) Message {
	return Message{
		ActivityType:   "download",
		ActivityTime:   time.Now().UTC().Format(time.RFC3339),
		ItemID:         itemID,
		ItemType:       itemType,
		ItemName:       itemName,
		ItemParentPath: itemParentPath,
		ContainerCode:  containerCode,
		ContainerType:  containerType,
		Zone:           zone,
		User:           operator,
		Changes:        []string{},
	}
}
