package api

import (
	"context"
	"fmt"
	"strconv"

	"github.com/zfogg/sidechain/reader/pkg/client"
	clierrors "github.com/zfogg/sidechain/reader/pkg/errors"
	"github.com/zfogg/sidechain/reader/pkg/logger"
)

// Feed types served by the backend
var FeedTypes = []string{"timeline", "global", "trending", "for-you"}

// ValidateFeedType returns a validation error for unknown feed types
func ValidateFeedType(feedType string) error {
	for _, t := range FeedTypes {
		if t == feedType {
			return nil
		}
	}
	return clierrors.ValidationError("feed type", fmt.Sprintf("must be one of %v", FeedTypes))
}

// GetFeed retrieves one page of a feed. Pages start at 1.
func GetFeed(ctx context.Context, feedType string, page, pageSize int) (*FeedResponse, error) {
	logger.Debug("Fetching feed", "type", feedType, "page", page)

	var response FeedResponse

	resp, err := client.GetClient().
		R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"page":      strconv.Itoa(page),
			"page_size": strconv.Itoa(pageSize),
		}).
		SetResult(&response).
		Get(fmt.Sprintf("/api/v1/feed/%s", feedType))

	if err := CheckResponse(resp, err); err != nil {
		return nil, err
	}

	// Older servers do not echo paging fields
	if response.Page == 0 {
		response.Page = page
	}
	if response.PageSize == 0 {
		response.PageSize = pageSize
	}

	return &response, nil
}
