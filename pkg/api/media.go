package api

import (
	"context"
	"fmt"
	"io"

	"github.com/zfogg/sidechain/reader/pkg/client"
	clierrors "github.com/zfogg/sidechain/reader/pkg/errors"
	"github.com/zfogg/sidechain/reader/pkg/logger"
)

// DownloadMedia fetches a media resource. src may be absolute or relative to
// the API base URL. Bodies larger than maxBytes are rejected; maxBytes <= 0
// disables the limit.
func DownloadMedia(ctx context.Context, src string, maxBytes int64) ([]byte, error) {
	logger.Debug("Downloading media", "src", src)

	resp, err := client.GetClient().
		R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(src)
	if err != nil {
		return nil, clierrors.CategorizeError(err)
	}

	body := resp.RawBody()
	defer body.Close()

	if !resp.IsSuccess() {
		return nil, clierrors.FromStatus(resp.StatusCode(), src)
	}

	var r io.Reader = body
	if maxBytes > 0 {
		r = io.LimitReader(body, maxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, clierrors.CategorizeError(err)
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, clierrors.ValidationError("media", fmt.Sprintf("larger than %d bytes", maxBytes))
	}

	return data, nil
}
