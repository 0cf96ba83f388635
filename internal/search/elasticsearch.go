package search

import (
	"bytes"
	"context"
	"encoding/json"

	"example.com/clinic/config"
	"example.com/clinic/internal/models"

	"github.com/elastic/go-elasticsearch/v7"
	"github.com/elastic/go-elasticsearch/v7/esapi"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// ElasticClient provides integration with Elasticsearch
type ElasticClient struct {
	client *elasticsearch.Client
	config config.ElasticConfig
}

// NewElasticClient creates a new Elasticsearch client
func NewElasticClient(cfg config.ElasticConfig) (*ElasticClient, error) {
	esConfig := elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
	}

	client, err := elasticsearch.NewClient(esConfig)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Elasticsearch client")
	}

	return &ElasticClient{
		client: client,
		config: cfg,
	}, nil
}

// IndexAppointment indexes an appointment in Elasticsearch
func (c *ElasticClient) IndexAppointment(ctx context.Context, appointment *models.Appointment, patientName, doctorName string) error {
	log.Info().Str("appointment_id", appointment.ID.String()).Msg("indexing appointment")

	// Build the document to be indexed
	doc := map[string]interface{}{
		"id":             appointment.ID.String(),
		"patient_id":     appointment.PatientID.String(),
		"patient_name":   patientName,
		"doctor_name":    doctorName,
		"scheduled_time": appointment.ScheduledTime,
		"reason":         appointment.Reason,
		"status":         appointment.Status,
		"created_at":     appointment.CreatedAt,
	}
	if appointment.DoctorID != nil {
		doc["doctor_id"] = appointment.DoctorID.String()
	}
	if appointment.ScheduleID != nil {
		doc["schedule_id"] = appointment.ScheduleID.String()
	}

	docJson, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "failed to marshal appointment document")
	}

	// Prepare the index request
	indexName := config.FormatIndex(c.config, c.config.Index)
	req := esapi.IndexRequest{
		Index:      indexName,
		DocumentID: appointment.ID.String(),
		Body:       bytes.NewReader(docJson),
		Refresh:    "true",
	}

	// Execute the request
	res, err := req.Do(ctx, c.client)
	if err != nil {
		return errors.Wrap(err, "failed to execute Elasticsearch index request")
	}
	defer res.Body.Close()

	// Check for errors in the response
	if res.IsError() {
		var e map[string]interface{}
		if err := json.NewDecoder(res.Body).Decode(&e); err != nil {
			return errors.Wrap(err, "failed to parse Elasticsearch error response")
		}
		return errors.Errorf("Elasticsearch index error: %v", e)
	}

	log.Info().Str("appointment_id", appointment.ID.String()).Msg("appointment indexed successfully")
	return nil
}

// SearchAppointments searches for appointments with the given criteria
func (c *ElasticClient) SearchAppointments(ctx context.Context, query map[string]interface{}) ([]map[string]interface{}, error) {
	queryJSON, err := json.Marshal(query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal search query")
	}

	// Prepare the search request
	indexName := config.FormatIndex(c.config, c.config.Index)
	req := esapi.SearchRequest{
		Index: []string{indexName},
		Body:  bytes.NewReader(queryJSON),
	}

	// Execute the request
	res, err := req.Do(ctx, c.client)
	if err != nil {
		return nil, errors.Wrap(err, "failed to execute Elasticsearch search request")
	}
	defer res.Body.Close()

	// Check for errors in the response
	if res.IsError() {
		var e map[string]interface{}
		if err := json.NewDecoder(res.Body).Decode(&e); err != nil {
			return nil, errors.Wrap(err, "failed to parse Elasticsearch error response")
		}
		return nil, errors.Errorf("Elasticsearch search error: %v", e)
	}

	// Parse the response
	var result map[string]interface{}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, errors.Wrap(err, "failed to parse Elasticsearch search response")
	}

	// Extract the hits
	hits, ok := result["hits"].(map[string]interface{})
	if !ok {
		return nil, errors.New("unexpected search result format")
	}

	hitsArray, ok := hits["hits"].([]interface{})
	if !ok {
		return nil, errors.New("unexpected hits format")
	}

	var docs []map[string]interface{}
	for _, hit := range hitsArray {
		hitMap, ok := hit.(map[string]interface{})
		if !ok {
			continue
		}

		source, ok := hitMap["_source"].(map[string]interface{})
		if !ok {
			continue
		}

		docs = append(docs, source)
	}

	return docs, nil
}
