/*
Package texture is the in-process conversion backend. It reads and writes
plain DDS containers holding DXT1/DXT3/DXT5 block data using the BCn codec
from github.com/woozymasta/bcn, and PNG through the standard image/png
coder, so batches can run on hosts without ImageMagick.

Only the top mip level is decoded; on encode a full (or capped) mip chain is
generated and written largest-first, as DDS readers expect.
*/
package texture
