/*
Package mangadl resolves Mangago chapter reader pages into ordered page image
URLs and the keys needed to unscramble them.

A chapter page embeds an AES-encrypted, character-shuffled image list and
references an obfuscated chapter.js. The Resolver walks that chain:

 1. fetch the reader page (and, on the mobile layout, every batch page)
 2. load chapter.js through a short-lived cache and deobfuscate it
 3. pull the AES key, IV and tile grid out of the script
 4. decrypt and unshuffle the image list
 5. compute a descrambling key for each tile-scrambled image in a sandboxed
    JavaScript interpreter

Usage:

	r := mangadl.New().WithConcurrency(4)
	pages, err := r.ResolvePages(ctx, "https://www.mangago.me/read-manga/title/mf/v01/c001/")
	if err != nil {
		return err
	}
	for _, p := range pages {
		fmt.Println(p.FragmentURL())
	}

Scrambled pages are restored with RenderPage or the downloader package. A page
whose key could not be computed is still returned, with KeyErr set.

Errors from the site-format stages (errs.ErrFormat, errs.ErrKeyNotFound,
errs.ErrDecryption) mean the site changed; retrying will not help.
*/
package mangadl
