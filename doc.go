/*
Package ipv implements landmark localization for 2D scan images by
interval point voting.

The engine never regresses coordinates. At training time a Sampler walks a
dense grid over each annotated image and, per grid point, labels the
discretized distance and bearing toward every landmark while cropping
multi-scale patch views of the point's neighborhood. An external
classifier is trained on those records. At inference time a Localizer
consumes the classifier's per-sample head scores and rasterizes each
trusted prediction as an annular arc sector into a per-landmark vote map;
the smoothed map's peak is the detected landmark.

Both halves share the interval tables and geometry helpers in this
package, which also defines the classifier contract, a classifier pool,
and a decoder for raw score streams.

See example code and usage in the example subdirectory.
*/
package ipv
