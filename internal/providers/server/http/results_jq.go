package http

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/itchyny/gojq"

	"github.com/crmarques/cement/entity"
	"github.com/crmarques/cement/server"
)

var resultsSelectorCache sync.Map

func (g *EntityServerGateway) decodeSearchPage(ctx context.Context, schema entity.Schema, body []byte) (server.SearchPage, error) {
	value, err := decodeJSON(body)
	if err != nil {
		return server.SearchPage{}, server.NewPagePayloadShapeError("search response is not valid JSON", err)
	}
	document, ok := value.(map[string]any)
	if !ok {
		return server.SearchPage{}, server.NewPagePayloadShapeError(
			fmt.Sprintf("search response for %s must be a JSON object", schema.DisplayName()),
			nil,
		)
	}

	page := server.SearchPage{}
	for key, target := range map[string]*int{
		"total":    &page.Total,
		"subtotal": &page.Subtotal,
		"page":     &page.Page,
		"per_page": &page.PerPage,
	} {
		number, err := pageNumber(document[key])
		if err != nil {
			return server.SearchPage{}, server.NewPagePayloadShapeError(fmt.Sprintf("search response %q is not a number", key), err)
		}
		*target = number
	}

	items, err := selectResults(ctx, schema.ResultsSelectorOrDefault(), document)
	if err != nil {
		return server.SearchPage{}, err
	}

	page.Results = make([]entity.Entity, 0, len(items))
	for _, item := range items {
		record, ok := item.(map[string]any)
		if !ok {
			return server.SearchPage{}, server.NewPagePayloadShapeError(
				fmt.Sprintf("search result for %s must be an object, got %T", schema.DisplayName(), item),
				nil,
			)
		}
		decoded, err := decodeEntity(schema, record)
		if err != nil {
			return server.SearchPage{}, err
		}
		page.Results = append(page.Results, decoded)
	}
	return page, nil
}

// pageNumber accepts the integer and string forms Foreman uses for paging
// metadata. A missing value is zero.
func pageNumber(value any) (int, error) {
	switch typed := value.(type) {
	case nil:
		return 0, nil
	case int64:
		return int(typed), nil
	case float64:
		return int(typed), nil
	case string:
		if strings.TrimSpace(typed) == "" {
			return 0, nil
		}
		return strconv.Atoi(strings.TrimSpace(typed))
	default:
		return 0, fmt.Errorf("unexpected %T", value)
	}
}

// selectResults runs the results selector and collects every emitted value.
func selectResults(ctx context.Context, selector string, document map[string]any) ([]any, error) {
	code, err := cachedResultsSelector(selector)
	if err != nil {
		return nil, validationError(fmt.Sprintf("invalid results selector %q", selector), err)
	}

	runCtx := ctx
	if runCtx == nil {
		runCtx = context.Background()
	}
	iterator := code.RunWithContext(runCtx, toJQValue(document))
	results := make([]any, 0)
	for {
		value, ok := iterator.Next()
		if !ok {
			break
		}
		if valueErr, isErr := value.(error); isErr {
			return nil, server.NewPagePayloadShapeError(fmt.Sprintf("results selector %q failed", selector), valueErr)
		}
		normalized, err := entity.Normalize(value)
		if err != nil {
			return nil, server.NewPagePayloadShapeError("search result is invalid", err)
		}
		results = append(results, normalized)
	}
	return results, nil
}

func cachedResultsSelector(selector string) (*gojq.Code, error) {
	if cached, ok := resultsSelectorCache.Load(selector); ok {
		if typed, ok := cached.(*gojq.Code); ok && typed != nil {
			return typed, nil
		}
	}

	query, err := gojq.Parse(selector)
	if err != nil {
		return nil, err
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return nil, err
	}

	actual, _ := resultsSelectorCache.LoadOrStore(selector, code)
	typed, _ := actual.(*gojq.Code)
	if typed == nil {
		return code, nil
	}
	return typed, nil
}

// toJQValue converts normalized values into the number types gojq accepts.
func toJQValue(value any) any {
	switch typed := value.(type) {
	case int64:
		return int(typed)
	case []any:
		converted := make([]any, len(typed))
		for idx, item := range typed {
			converted[idx] = toJQValue(item)
		}
		return converted
	case map[string]any:
		converted := make(map[string]any, len(typed))
		for key, item := range typed {
			converted[key] = toJQValue(item)
		}
		return converted
	default:
		return value
	}
}
