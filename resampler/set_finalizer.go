package resampler

import (
	"context"

	"github.com/xaionaro-go/avplayback/internal"
)

func setFinalizerFree[T interface{ Free() }](
	ctx context.Context,
	freer T,
) {
	internal.SetFinalizerFree(ctx, freer)
}
